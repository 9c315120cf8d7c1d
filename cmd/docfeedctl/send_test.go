package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/docfeed/internal/config"
	"github.com/kailas-cloud/docfeed/internal/domain"
	"github.com/kailas-cloud/docfeed/pkg/producer"
)

func testConfig() config.Config {
	return config.Config{
		Queue: config.QueueConfig{URL: "amqp://localhost:5672/", Name: "embedding_tasks"},
		Index: config.IndexConfig{Host: "localhost", Port: 6334, Collection: "documents"},
		Embedding: config.EmbeddingConfig{
			Provider: "gemini", Model: "text-embedding-004", Dimensions: 768,
		},
	}
}

func stubConfig(t *testing.T) {
	t.Helper()
	orig := loadConfig
	loadConfig = func() (config.Config, error) { return testConfig(), nil }
	t.Cleanup(func() { loadConfig = orig })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

// --- send tests ---

type fakePublisher struct {
	messages []producer.Message
	fileRefs []string
	err      error
	closed   bool
}

func (f *fakePublisher) Publish(_ context.Context, msg producer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakePublisher) PublishFileRef(_ context.Context, path string) error {
	if f.err != nil {
		return f.err
	}
	f.fileRefs = append(f.fileRefs, path)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func stubPublisher(t *testing.T) *fakePublisher {
	t.Helper()
	fake := &fakePublisher{}
	orig := connectProducer
	connectProducer = func(config.Config) (publisher, error) { return fake, nil }
	t.Cleanup(func() { connectProducer = orig })
	return fake
}

func resetSendFlags() {
	sendText, sendFile, sendPath, sendID = "", "", "", ""
	sendStdin = false
	sendSource = domain.SourceManual
}

func TestSend_Text(t *testing.T) {
	t.Cleanup(resetSendFlags)
	stubConfig(t)
	fake := stubPublisher(t)

	out, err := execute(t, "send", "--text", "hello world", "--id", "doc-1")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(fake.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(fake.messages))
	}
	msg := fake.messages[0]
	if msg.Content != "hello world" {
		t.Errorf("Content = %q", msg.Content)
	}
	if msg.DocumentID != "doc-1" {
		t.Errorf("DocumentID = %q", msg.DocumentID)
	}
	if msg.Source != "manual" {
		t.Errorf("Source = %q, want default manual", msg.Source)
	}
	if !fake.closed {
		t.Error("producer not closed")
	}
	if !strings.Contains(out, "embedding_tasks") {
		t.Errorf("output %q does not name the queue", out)
	}
}

func TestSend_File(t *testing.T) {
	t.Cleanup(resetSendFlags)
	stubConfig(t)
	fake := stubPublisher(t)

	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte("# Title\n\nBody."), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "send", "--file", path, "--source", "import"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(fake.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(fake.messages))
	}
	if fake.messages[0].Content != "# Title\n\nBody." {
		t.Errorf("Content = %q", fake.messages[0].Content)
	}
	if fake.messages[0].Source != "import" {
		t.Errorf("Source = %q", fake.messages[0].Source)
	}
}

func TestSend_Stdin(t *testing.T) {
	t.Cleanup(resetSendFlags)
	stubConfig(t)
	fake := stubPublisher(t)

	rootCmd.SetIn(strings.NewReader("piped content"))
	if _, err := execute(t, "send", "--stdin"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(fake.messages) != 1 || fake.messages[0].Content != "piped content" {
		t.Fatalf("messages = %+v", fake.messages)
	}
}

func TestSend_FileRef(t *testing.T) {
	t.Cleanup(resetSendFlags)
	stubConfig(t)
	fake := stubPublisher(t)

	out, err := execute(t, "send", "--path", "/var/docs/guide.md")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(fake.fileRefs) != 1 || fake.fileRefs[0] != "/var/docs/guide.md" {
		t.Fatalf("fileRefs = %v", fake.fileRefs)
	}
	if len(fake.messages) != 0 {
		t.Errorf("unexpected content messages: %+v", fake.messages)
	}
	if !strings.Contains(out, "file reference") {
		t.Errorf("output = %q", out)
	}
}

func TestSend_NoInputRejected(t *testing.T) {
	t.Cleanup(resetSendFlags)
	stubConfig(t)
	stubPublisher(t)

	if _, err := execute(t, "send"); err == nil {
		t.Fatal("expected error without input flags")
	}
}

func TestSend_ConflictingInputsRejected(t *testing.T) {
	t.Cleanup(resetSendFlags)
	stubConfig(t)
	fake := stubPublisher(t)

	_, err := execute(t, "send", "--text", "a", "--stdin")
	if err == nil {
		t.Fatal("expected error for conflicting inputs")
	}
	if len(fake.messages) != 0 {
		t.Errorf("nothing should be published, got %+v", fake.messages)
	}
}

func TestSend_PublishError(t *testing.T) {
	t.Cleanup(resetSendFlags)
	stubConfig(t)
	fake := stubPublisher(t)
	fake.err = errors.New("broker gone")

	if _, err := execute(t, "send", "--text", "hello"); err == nil {
		t.Fatal("expected publish error to propagate")
	}
}

func TestSend_ConnectError(t *testing.T) {
	t.Cleanup(resetSendFlags)
	stubConfig(t)
	orig := connectProducer
	connectProducer = func(config.Config) (publisher, error) {
		return nil, errors.New("dial tcp: refused")
	}
	t.Cleanup(func() { connectProducer = orig })

	if _, err := execute(t, "send", "--text", "hello"); err == nil {
		t.Fatal("expected connect error to propagate")
	}
}
