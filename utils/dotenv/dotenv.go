package dotenv

import (
	"os"
	"regexp"

	"github.com/joho/godotenv"
)

const (
	EnvKey  = "INFOFLOW_ENV"
	DevEnv  = "dev"
	ProdEnv = "prod"
	TestEnv = "test"
)

// Load loads the .env file following the convention: https://github.com/bkeepers/dotenv#what-other-env-files-can-i-use
// It only need to be called once in main function, other code can use env through os.Getenv('ENV_NAME') during runtime
func LoadDotEnvs() error {
	loadDotEnvs("")
	return nil
}

// Env returns the runtime env, defaults to dev.
func Env() string {
	env := os.Getenv(EnvKey)
	if env == "" {
		return DevEnv
	}
	return env
}

func IsProdEnv() bool {
	return Env() == ProdEnv
}

func loadDotEnvs(rootPath string) {
	env := Env()

	// .env.[runtime_env].local has highest priority, usually contains passwords and api tokens
	godotenv.Load(rootPath + ".env." + env + ".local")
	godotenv.Load(rootPath + ".env.local")
	// .env.[runtime_env] usually contains db connection information
	godotenv.Load(rootPath + ".env." + env)
	// .env usually contains shared variables(which might be overwritten by envs above)
	godotenv.Load(rootPath + ".env")
}

// Have to write this helper function due to a known issue of godotenv
// https://github.com/joho/godotenv/issues/43
func LoadDotEnvsInTests() error {
	re := regexp.MustCompile(`^(.*infoflow)`)
	cwd, _ := os.Getwd()
	rootPath := re.Find([]byte(cwd))

	godotenv.Load(string(rootPath) + "/" + ".env.test")
	return nil
}
