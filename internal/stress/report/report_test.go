package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/strest/internal/stress"
	"github.com/wesleyorama2/strest/internal/stress/metrics"
)

func sampleStore() *stress.Store {
	store := stress.NewStore()
	store.Init().Note("case started", map[string]any{"case": "[ #1 ][ I(2) ] - login"})
	store.Scoped(stress.PhaseSetup, 0).Note("connected", nil)
	store.Scoped(stress.PhaseScenario, 1).Warning("slow response", map[string]any{"ms": 950})
	store.Scoped(stress.PhaseScenario, 1).Error("unexpected status", 503)
	return store
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument("login", "logs in", sampleStore(), nil)

	assert.Equal(t, 4, doc.Total)
	require.Len(t, doc.Phases, len(stress.Phases))
	for i, p := range doc.Phases {
		assert.Equal(t, stress.Phases[i], p.Phase)
	}
	assert.Equal(t, 1, doc.Counts[stress.KindError])
	require.Len(t, doc.Errors(), 1)
	assert.Equal(t, "unexpected status", doc.Errors()[0].Message)
	assert.Nil(t, doc.Metrics)
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"login", "login.html"},
		{"a/b:c*d?", "a!b!c!d!.html"},
		{"  ..  ", "report.html"},
		{"<<>>", "!.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.name, ".html"))
		})
	}
}

func TestFilename_TruncatesOnRuneBoundary(t *testing.T) {
	name := "a" + strings.Repeat("é", 150)

	got := Filename(name, ".json")

	assert.True(t, utf8.ValidString(got), got)
	assert.Equal(t, "a"+strings.Repeat("é", 99)+".json", got)
	assert.LessOrEqual(t, len(got), maxFilenameBytes+len(".json"))
}

func TestJSONWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	collector := metrics.NewCollector()
	collector.ForSpec("login flow").ObservePhase(stress.StepScenario, 0, 2*time.Millisecond, nil)
	collector.ForSpec("other").ObservePhase(stress.StepScenario, 0, 2*time.Millisecond, nil)

	w := &JSONWriter{Metrics: collector, Indent: true}
	require.NoError(t, w.WriteReport(context.Background(), "login flow", "desc", sampleStore(), dir))

	data, err := os.ReadFile(filepath.Join(dir, "login flow.json"))
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "login flow", doc.Name)
	assert.Equal(t, 4, doc.Total)
	require.NotNil(t, doc.Metrics)
	assert.EqualValues(t, 1, doc.Metrics.Steps[stress.StepScenario].Count)

	assert.Contains(t, string(data), `"type": "WARNING"`)
}

func TestHTMLWriter(t *testing.T) {
	dir := t.TempDir()
	w := &HTMLWriter{}
	require.NoError(t, w.WriteReport(context.Background(), "checkout", "buys things", sampleStore(), dir))

	data, err := os.ReadFile(filepath.Join(dir, "checkout.html"))
	require.NoError(t, err)
	html := string(data)

	for _, expected := range []string{
		"<!DOCTYPE html>",
		"<title>checkout - Stress Test Report</title>",
		"buys things",
		"slow response",
		`id="phase-SCENARIO"`,
		`<tr class="error">`,
		"No reports.",
	} {
		assert.Contains(t, html, expected)
	}
}

func TestRenderHTML_Escapes(t *testing.T) {
	store := stress.NewStore()
	store.Init().Note("<script>alert(1)</script>", nil)

	html, err := RenderHTML(NewDocument("x", "", store, nil))
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>alert(1)</script>")

	_, err = RenderHTML(nil)
	assert.Error(t, err)
}

func TestMsgpackWriter(t *testing.T) {
	dir := t.TempDir()
	w := &MsgpackWriter{}
	require.NoError(t, w.WriteReport(context.Background(), "binary", "", sampleStore(), dir))

	data, err := os.ReadFile(filepath.Join(dir, "binary.msgpack"))
	require.NoError(t, err)

	doc, err := DecodeMsgpack(data)
	require.NoError(t, err)
	assert.Equal(t, "binary", doc.Name)
	assert.Equal(t, 4, doc.Total)

	scenario := doc.Phases[2]
	assert.Equal(t, stress.PhaseScenario, scenario.Phase)
	require.Len(t, scenario.Reports, 2)
	require.NotNil(t, scenario.Reports[0].Instance)
	assert.Equal(t, 1, *scenario.Reports[0].Instance)
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[*in.Bucket+"/"+*in.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3Writer(t *testing.T) {
	client := &fakeS3{}
	w := &S3Writer{Client: client, Bucket: "bucket", Prefix: "strest"}

	require.NoError(t, w.WriteReport(context.Background(), "login", "", sampleStore(), "./reports/"))

	body, ok := client.objects["bucket/strest/reports/login.json"]
	require.True(t, ok, "uploaded keys: %v", client.objects)

	var doc Document
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, 4, doc.Total)
}

func TestS3Writer_Errors(t *testing.T) {
	w := &S3Writer{Client: &fakeS3{err: errors.New("access denied")}, Bucket: "b"}
	err := w.WriteReport(context.Background(), "x", "", sampleStore(), "")
	assert.ErrorContains(t, err, "access denied")

	assert.Error(t, (&S3Writer{}).WriteReport(context.Background(), "x", "", sampleStore(), ""))
	assert.Error(t, (&S3Config{}).Validate())
}

func asyncReceive(sub *miniredis.Subscriber) <-chan miniredis.PubsubMessage {
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() {
		ch <- <-sub.Messages()
	}()
	return ch
}

func waitMessage(t *testing.T, ch <-chan miniredis.PubsubMessage) miniredis.PubsubMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return miniredis.PubsubMessage{}
	}
}

func TestRedisWriter_PublishesSummary(t *testing.T) {
	mr := miniredis.RunT(t)

	w, err := NewRedisWriter(RedisConfig{URL: "redis://" + mr.Addr(), KeyPrefix: "strest:doc:"})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	sub := mr.NewSubscriber()
	sub.Subscribe(DefaultChannel)
	ch := asyncReceive(sub)

	require.NoError(t, w.WriteReport(context.Background(), "login", "logs in", sampleStore(), "reports"))

	msg := waitMessage(t, ch)
	assert.Equal(t, DefaultChannel, msg.Channel)

	var summary Summary
	require.NoError(t, json.Unmarshal([]byte(msg.Message), &summary))
	assert.Equal(t, "login", summary.Name)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, "redis:strest:doc:login", summary.Location)

	stored, err := mr.Get("strest:doc:login")
	require.NoError(t, err)
	assert.True(t, strings.Contains(stored, `"phases"`))
}

func TestRedisWriter_Config(t *testing.T) {
	_, err := NewRedisWriter(RedisConfig{})
	assert.Error(t, err)

	_, err = NewRedisWriter(RedisConfig{URL: "not-a-url://"})
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	mr := miniredis.RunT(t)

	writers, closer, err := Build(context.Background(), []string{"json", "HTML", "json", "msgpack", "s3", "redis"}, Options{
		S3:       &S3Config{Bucket: "b"},
		S3Client: &fakeS3{},
		Redis:    &RedisConfig{URL: "redis://" + mr.Addr()},
	})
	require.NoError(t, err)
	defer func() { _ = closer.Close() }()

	var names []string
	for _, w := range writers {
		names = append(names, w.Name())
	}
	assert.Equal(t, []string{"json", "html", "msgpack", "s3", "redis"}, names)
}

func TestBuild_Errors(t *testing.T) {
	_, _, err := Build(context.Background(), []string{"pdf"}, Options{})
	assert.ErrorContains(t, err, `unknown reporter "pdf"`)

	_, _, err = Build(context.Background(), []string{"s3"}, Options{})
	assert.ErrorContains(t, err, "requires an s3 section")

	_, _, err = Build(context.Background(), []string{"redis"}, Options{})
	assert.ErrorContains(t, err, "requires a redis section")
}
