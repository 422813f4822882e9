package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ObjectPutter is the part of *s3.Client the outbox needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Settings locates the outbox bucket on an S3-compatible store.
type S3Settings struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Bucket       string
	From         string
}

// S3Outbox writes every message as a JSON object into a bucket, where a
// separate mail relay picks it up. The object key doubles as the Ack id.
type S3Outbox struct {
	client ObjectPutter
	bucket string
	from   string
	now    func() time.Time
}

// envelope is the stored object layout read by the relay.
type envelope struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	HTML      string    `json:"html"`
	CreatedAt time.Time `json:"created_at"`
}

func NewS3Outbox(client ObjectPutter, bucket, from string) *S3Outbox {
	return &S3Outbox{client: client, bucket: bucket, from: from, now: time.Now}
}

// NewS3OutboxFromSettings builds the S3 client with static credentials.
func NewS3OutboxFromSettings(ctx context.Context, s S3Settings) (*S3Outbox, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.AccessKey, s.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3Outbox(client, s.Bucket, s.From), nil
}

func (o *S3Outbox) Send(ctx context.Context, msg Message) (Ack, error) {
	now := o.now().UTC()
	id := uuid.NewString()
	key := fmt.Sprintf("outbox/%d/%02d/%02d/%s.json", now.Year(), now.Month(), now.Day(), id)

	body, err := json.Marshal(envelope{
		ID: id, From: o.from, To: msg.To, Subject: msg.Subject, HTML: msg.HTML, CreatedAt: now,
	})
	if err != nil {
		return Ack{}, fmt.Errorf("encode message: %w", err)
	}

	_, err = o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return Ack{}, fmt.Errorf("put outbox object: %w", err)
	}

	return Ack{ID: key}, nil
}
