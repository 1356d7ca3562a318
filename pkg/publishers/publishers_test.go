package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadRegistryEnabledFilter(t *testing.T) {
	path := writeFile(t, "publishers.yaml", `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: queue
    type: SQS
    sqs:
      queue_url: " https://sqs.us-east-1.amazonaws.com/1/receipts "
      region: us-east-1
      endpoint: http://localhost:4566
`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "queue" {
		t.Fatalf("expected only queue enabled, got %#v", enabled)
	}
	q := enabled[0]
	if q.Type != TypeSQS || q.SQS.QueueURL != "https://sqs.us-east-1.amazonaws.com/1/receipts" {
		t.Fatalf("sqs entry not normalized: %#v", q.SQS)
	}
	if q.SQS.Region != "us-east-1" || q.SQS.Endpoint != "http://localhost:4566" {
		t.Fatalf("inline aws settings not decoded: %#v", q.SQS.AWSConfig)
	}
	if h, ok := reg.ByID("http1"); !ok || h.HTTP.Method != "POST" || h.HTTP.TimeoutSeconds != 5 {
		t.Fatalf("http defaults not applied: %#v", h.HTTP)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := writeFile(t, "publishers.json", `{"publishers":[
		{"id":"topic","type":"sns","sns":{"topic_arn":"arn:aws:sns:eu-west-1:1:r","region":"eu-west-1"}},
		{"id":"gcp","type":"pubsub","pubsub":{"project_id":"p","topic":"t"}}
	]}`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 2 {
		t.Fatalf("expected 2 publishers, got %d", len(reg.All()))
	}
	if sns, _ := reg.ByID("topic"); sns.SNS.Region != "eu-west-1" {
		t.Fatalf("embedded aws config not decoded from JSON: %#v", sns.SNS)
	}
}

func TestLoadRegistryRejectsDuplicates(t *testing.T) {
	path := writeFile(t, "publishers.yml", `
publishers:
  - {id: a, type: http, http: {url: "https://a"}}
  - {id: a, type: http, http: {url: "https://b"}}
`)
	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestValidatePublisherConfig(t *testing.T) {
	cases := map[string]PublisherConfig{
		"missing http":      {ID: "h1", Type: TypeHTTP},
		"missing region":    {ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "q"}},
		"half credentials":  {ID: "s", Type: TypeSNS, SNS: &SNSPublisherConfig{TopicARN: "t", AWSConfig: AWSConfig{Region: "r", AccessKeyID: "k"}}},
		"missing topic":     {ID: "g", Type: TypePubSub, PubSub: &PubSubPublisherConfig{ProjectID: "p"}},
		"missing id":        {Type: TypeHTTP},
		"missing type name": {ID: "x"},
	}
	for name, cfg := range cases {
		if err := normalizeConfig(cfg).validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
