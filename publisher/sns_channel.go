package publisher

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/pkg/errors"

	"github.com/Luismorlan/infoflow/model"
)

// BriefMessage is the payload published to the topic, downstream
// subscribers fan it out to email.
type BriefMessage struct {
	BriefId      string           `json:"brief_id"`
	BriefDate    string           `json:"brief_date"`
	Title        string           `json:"title"`
	FeaturedIds  []string         `json:"featured_ids"`
	HeatTopIds   []string         `json:"heat_top_ids"`
	PotentialIds []string         `json:"potential_ids"`
	Stats        model.BriefStats `json:"stats"`
	Markdown     string           `json:"markdown"`
	Html         string           `json:"html"`
}

type SnsChannel struct {
	TopicArn string
	Client   snsiface.SNSAPI
}

func NewSnsChannel(region, topicArn string) (*SnsChannel, error) {
	// AWS client session
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, errors.Wrap(err, "fail to create aws session")
	}
	return &SnsChannel{TopicArn: topicArn, Client: sns.New(sess)}, nil
}

func (s *SnsChannel) Name() string {
	return ChannelSns
}

func (s *SnsChannel) Publish(ctx context.Context, brief *model.Brief) error {
	stats, err := brief.DecodedStats()
	if err != nil {
		return errors.Wrap(err, "fail to decode brief stats")
	}
	payload, err := json.Marshal(BriefMessage{
		BriefId:      brief.Id,
		BriefDate:    brief.BriefDate,
		Title:        brief.Title,
		FeaturedIds:  brief.Featured(),
		HeatTopIds:   brief.HeatTop(),
		PotentialIds: brief.Potential(),
		Stats:        stats,
		Markdown:     brief.MarkdownContent,
		Html:         brief.HtmlContent,
	})
	if err != nil {
		return errors.Wrap(err, "fail to encode brief message")
	}
	_, err = s.Client.PublishWithContext(ctx, &sns.PublishInput{
		Message:  aws.String(string(payload)),
		Subject:  aws.String(truncate(brief.Title, 100)),
		TopicArn: aws.String(s.TopicArn),
	})
	return err
}
