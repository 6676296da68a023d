package classifier

// TopicRule maps a topic tag onto the keywords that indicate it. Keywords mix
// English and Chinese, matching is case insensitive.
type TopicRule struct {
	Name     string
	Color    string
	Keywords []string
}

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

var DefaultTopicRules = []TopicRule{
	{
		Name:  "AI",
		Color: "#7C3AED",
		Keywords: []string{
			"人工智能", "AI", "machine learning", "deep learning", "neural network",
			"GPT", "LLM", "大模型", "ChatGPT", "Claude", "生成式AI", "AIGC",
			"stable diffusion", "midjourney", "prompt", "训练模型", "推理",
			"transformer", "BERT", "NLP", "计算机视觉", "强化学习",
		},
	},
	{
		Name:  "Tech",
		Color: "#2563EB",
		Keywords: []string{
			"科技", "tech", "technology", "互联网", "internet", "软件", "software",
			"硬件", "hardware", "编程", "programming", "代码", "code",
			"开源", "open source", "GitHub", "开发者", "developer",
			"云计算", "cloud", "大数据", "big data", "区块链", "blockchain",
			"物联网", "IoT", "5G", "芯片", "半导体",
		},
	},
	{
		Name:  "Investing",
		Color: "#059669",
		Keywords: []string{
			"投资", "investment", "股票", "stock", "基金", "fund", "理财",
			"finance", "金融", "经济", "economy", "市场", "market",
			"crypto", "加密货币", "比特币", "bitcoin", "以太坊", "ethereum",
			"A股", "港股", "美股", "IPO", "上市", "财报", "earnings",
			"量化", "quant", "交易策略", "trading", "收益率",
		},
	},
	{
		Name:  "Life",
		Color: "#D97706",
		Keywords: []string{
			"生活", "life", "lifestyle", "健康", "health", "健身", "fitness",
			"美食", "food", "旅行", "travel", "摄影", "photography",
			"家居", "穿搭", "fashion", "护肤", "skincare",
			"读书", "reading", "电影", "movie", "音乐", "music",
			"宠物", "pet", "育儿", "parenting", "心理", "psychology",
		},
	},
	{
		Name:  "Entertainment",
		Color: "#DB2777",
		Keywords: []string{
			"娱乐", "entertainment", "明星", "celebrity", "综艺",
			"游戏", "game", "gaming", "电竞", "esports", "动漫", "anime",
			"八卦", "gossip", "吐槽", "搞笑", "funny", "meme",
			"追剧", "drama", "网剧", "短视频", "直播",
		},
	},
	{
		Name:  "Design",
		Color: "#0891B2",
		Keywords: []string{
			"设计", "design", "UI", "UX", "界面", "interface", "视觉", "visual",
			"品牌", "branding", "插画", "illustration", "排版", "typography",
			"配色", "Figma", "Sketch", "Photoshop", "创意", "creative",
			"艺术", "art", "建筑", "architecture", "室内", "interior",
		},
	},
}

var DefaultPositiveWords = []string{
	"好", "棒", "优秀", "成功", "突破", "创新", "惊喜", "推荐", "喜欢",
	"good", "great", "excellent", "amazing", "awesome", "love", "best",
	"恭喜", "胜利", "增长", "提升", "解决", "完美", "赞", "👍", "❤️",
}

var DefaultNegativeWords = []string{
	"差", "糟糕", "失败", "问题", "bug", "错误", "失望", "讨厌", "恶心",
	"bad", "terrible", "awful", "hate", "worst", "fail", "error",
	"崩溃", "下降", "损失", "风险", "警告", "⚠️", "❌", "💔",
}

var entityStopWords = map[string]bool{
	"that": true, "this": true, "with": true, "from": true, "have": true,
	"been": true, "were": true, "they": true, "their": true, "there": true,
	"what": true, "when": true, "which": true, "will": true, "would": true,
	"about": true, "into": true, "than": true, "then": true, "them": true,
	"these": true, "those": true, "your": true, "more": true, "some": true,
	"just": true, "like": true, "also": true, "only": true, "over": true,
	"such": true, "very": true, "here": true, "after": true, "before": true,
	"could": true, "should": true, "because": true, "while": true, "where": true,
	"being": true, "does": true, "make": true, "made": true, "many": true,
	"much": true, "most": true, "other": true, "each": true, "http": true,
	"https": true, "html": true, "said": true, "says": true, "still": true,
	"positive": true, "negative": true, "neutral": true,
	"我们": true, "你们": true, "他们": true, "这个": true, "那个": true,
	"一个": true, "没有": true, "就是": true, "可以": true, "什么": true,
	"因为": true, "所以": true, "但是": true, "如果": true, "已经": true,
}
