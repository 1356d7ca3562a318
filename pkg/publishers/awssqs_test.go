package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSQSPublisherSendsEvent(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{
		id:       "queue",
		queueURL: "https://example.com/queue",
		client:   client,
		log:      noopLogger{},
	}

	err := pub.Publish(context.Background(), Event{Kind: KindClaimSubmitted, ClaimID: "claim-1"})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["claim_id"]
	if !ok || aws.ToString(attr.StringValue) != "claim-1" || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("claim_id attribute missing or wrong: %#v", attr)
	}
	if kind := client.input.MessageAttributes["event_kind"]; aws.ToString(kind.StringValue) != KindClaimSubmitted {
		t.Fatalf("event_kind attribute = %#v", kind)
	}
	if body := aws.ToString(client.input.MessageBody); !strings.Contains(body, `"claim_id":"claim-1"`) {
		t.Fatalf("MessageBody missing claim_id: %s", body)
	}
}

func TestSQSPublisherSkipsEmptyAttributes(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{id: "queue", queueURL: "q", client: client, log: noopLogger{}}

	if err := pub.Publish(context.Background(), Event{Kind: KindKnowledgeAdded}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if _, ok := client.input.MessageAttributes["claim_id"]; ok {
		t.Fatalf("empty claim_id should not be sent as an attribute")
	}
}

func TestSQSPublisherSendError(t *testing.T) {
	pub := &sqsPublisher{
		id:       "queue",
		queueURL: "https://example.com/queue",
		client:   &fakeSQSClient{err: errors.New("boom")},
		log:      noopLogger{},
	}

	if err := pub.Publish(context.Background(), Event{ClaimID: "claim-1"}); err == nil {
		t.Fatalf("expected error from Publish")
	}
}
