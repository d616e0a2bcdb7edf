package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/audioreader/internal/cleanup"
	"github.com/nikhilbhutani/audioreader/internal/extract"
	"github.com/nikhilbhutani/audioreader/internal/models"
	"github.com/nikhilbhutani/audioreader/internal/speech"
	"github.com/nikhilbhutani/audioreader/internal/storage"
	"github.com/nikhilbhutani/audioreader/internal/store"
)

type captureDispatcher struct {
	mu    sync.Mutex
	tasks []Task
	err   error
}

func (d *captureDispatcher) Dispatch(ctx context.Context, task Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.tasks = append(d.tasks, task)
	return nil
}

func (d *captureDispatcher) last(t *testing.T) Task {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.tasks)
	return d.tasks[len(d.tasks)-1]
}

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) Extract(ctx context.Context, fileURL, mimeType string) (string, error) {
	return s.text, s.err
}

type stubSynth struct {
	res   *speech.Result
	err   error
	voice string
	text  string
}

func (s *stubSynth) Synthesize(ctx context.Context, text, documentID, voiceID string) (*speech.Result, error) {
	s.text = text
	s.voice = voiceID
	return s.res, s.err
}

type memRecorder struct {
	mu     sync.Mutex
	stages []Stage
}

func (m *memRecorder) Record(ctx context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, e.Stage)
	return nil
}

type harness struct {
	svc        *Service
	store      *store.Store
	mr         *miniredis.Miniredis
	dispatcher *captureDispatcher
	events     *memRecorder
}

func newHarness(t *testing.T, ex Extractor, synth Synthesizer) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	st := store.New(client)
	events := &memRecorder{}
	svc := NewService(Deps{
		Store:       st,
		Extractor:   ex,
		Cleaner:     cleanup.NewCleaner(nil),
		Synthesizer: synth,
		Events:      events,
	}, "")
	d := &captureDispatcher{}
	svc.SetDispatcher(d)

	return &harness{svc: svc, store: st, mr: mr, dispatcher: d, events: events}
}

func (h *harness) seed(t *testing.T, id, fileURL, mime string) {
	t.Helper()
	require.NoError(t, h.store.CreateDocument(context.Background(), &models.Document{
		ID:               id,
		UserID:           "user-1",
		Title:            "doc",
		OriginalFilename: "doc.pdf",
		FileType:         mime,
		FileSize:         10,
		FileURL:          fileURL,
		Status:           models.DocStatusUploaded,
		UploadedAt:       "2026-01-01T00:00:00Z",
	}))
}

func (h *harness) doc(t *testing.T, id string) *models.Document {
	t.Helper()
	doc, err := h.store.GetDocument(context.Background(), id)
	require.NoError(t, err)
	return doc
}

func TestStartGuards(t *testing.T) {
	h := newHarness(t, stubExtractor{text: "x"}, &stubSynth{})
	h.seed(t, "doc-1", "https://files/doc.pdf", "application/pdf")
	ctx := context.Background()

	err := h.svc.Start(ctx, ProcessRequest{DocumentID: "missing", UserID: "user-1"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = h.svc.Start(ctx, ProcessRequest{DocumentID: "doc-1", UserID: "user-2"})
	assert.ErrorIs(t, err, ErrForbidden)

	doc := h.doc(t, "doc-1")
	assert.Equal(t, models.DocStatusUploaded, doc.Status)
	assert.Empty(t, doc.RunID)
	assert.Empty(t, h.dispatcher.tasks)
}

func TestStartMarksProcessing(t *testing.T) {
	h := newHarness(t, stubExtractor{text: "x"}, &stubSynth{})
	h.seed(t, "doc-1", "https://files/doc.pdf", "application/pdf")

	require.NoError(t, h.svc.Start(context.Background(), ProcessRequest{DocumentID: "doc-1", UserID: "user-1"}))

	doc := h.doc(t, "doc-1")
	task := h.dispatcher.last(t)
	assert.Equal(t, models.DocStatusProcessing, doc.Status)
	assert.NotEmpty(t, doc.ProcessingStartedAt)
	assert.Equal(t, "Joanna", doc.VoiceID)
	assert.Equal(t, doc.RunID, task.RunID)
	assert.Equal(t, "Joanna", task.VoiceID)
}

func TestRunSuccess(t *testing.T) {
	synth := &stubSynth{res: &speech.Result{
		AudioURL:    "https://blob/audio/doc-1.mp3",
		SpeechMarks: []models.SpeechMark{{Time: 0, WordIndex: 0}, {Time: 500, WordIndex: 1}},
		Provider:    speech.ProviderPrimary,
	}}
	h := newHarness(t, stubExtractor{text: "Hello   world."}, synth)
	h.seed(t, "doc-1", "https://files/doc.pdf", "application/pdf")
	ctx := context.Background()

	require.NoError(t, h.svc.Start(ctx, ProcessRequest{DocumentID: "doc-1", UserID: "user-1", VoiceID: "Matthew"}))
	status, err := h.svc.Run(ctx, h.dispatcher.last(t))

	require.NoError(t, err)
	assert.Equal(t, models.DocStatusReady, status)

	doc := h.doc(t, "doc-1")
	assert.Equal(t, models.DocStatusReady, doc.Status)
	assert.Equal(t, "Hello   world.", doc.ExtractedText)
	assert.Equal(t, "Hello world.", doc.CleanedText)
	assert.Equal(t, "https://blob/audio/doc-1.mp3", doc.AudioURL)
	assert.Len(t, doc.SpeechMarks, 2)
	assert.NotEmpty(t, doc.ProcessedAt)
	assert.Empty(t, doc.Error)
	assert.Equal(t, "Hello world.", synth.text)
	assert.Equal(t, "Matthew", synth.voice)
	assert.Equal(t, []Stage{StageStarted, StageExtracted, StageCleaned, StageReady}, h.events.stages)
}

func TestRunProviderFailures(t *testing.T) {
	testCases := []struct {
		name          string
		extractor     Extractor
		synth         *stubSynth
		wantError     string
		wantExtracted bool
	}{
		{
			name:      "extraction fails",
			extractor: stubExtractor{err: &extract.Error{Message: extract.NoTextMessage}},
			synth:     &stubSynth{},
			wantError: extract.NoTextMessage,
		},
		{
			name:          "synthesis fails",
			extractor:     stubExtractor{text: "Hello world."},
			synth:         &stubSynth{err: &speech.Error{Err: errors.New("both providers down")}},
			wantError:     "Failed to convert text to speech: both providers down",
			wantExtracted: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.extractor, tc.synth)
			h.seed(t, "doc-1", "https://files/doc.pdf", "application/pdf")
			ctx := context.Background()

			require.NoError(t, h.svc.Start(ctx, ProcessRequest{DocumentID: "doc-1", UserID: "user-1"}))
			status, err := h.svc.Run(ctx, h.dispatcher.last(t))

			require.NoError(t, err, "provider errors are persisted, not returned")
			assert.Equal(t, models.DocStatusError, status)

			doc := h.doc(t, "doc-1")
			assert.Equal(t, models.DocStatusError, doc.Status)
			assert.Equal(t, tc.wantError, doc.Error)
			assert.NotEmpty(t, doc.ErrorAt)
			assert.Empty(t, doc.AudioURL)
			assert.Equal(t, tc.wantExtracted, doc.ExtractedText != "")
			assert.Equal(t, tc.wantExtracted, doc.CleanedText != "")
		})
	}
}

func TestRestartClearsPreviousOutcome(t *testing.T) {
	synth := &stubSynth{res: &speech.Result{AudioURL: "https://blob/audio/doc-1.mp3", SpeechMarks: []models.SpeechMark{}}}
	h := newHarness(t, stubExtractor{text: "Hello."}, synth)
	h.seed(t, "doc-1", "https://files/doc.pdf", "application/pdf")
	ctx := context.Background()

	require.NoError(t, h.svc.Start(ctx, ProcessRequest{DocumentID: "doc-1", UserID: "user-1"}))
	_, err := h.svc.Run(ctx, h.dispatcher.last(t))
	require.NoError(t, err)
	require.Equal(t, models.DocStatusReady, h.doc(t, "doc-1").Status)

	require.NoError(t, h.svc.Start(ctx, ProcessRequest{DocumentID: "doc-1", UserID: "user-1"}))

	doc := h.doc(t, "doc-1")
	assert.Equal(t, models.DocStatusProcessing, doc.Status)
	assert.Empty(t, doc.AudioURL)
	assert.Empty(t, doc.ProcessedAt)
	assert.Empty(t, h.mr.HGet("document:doc-1", "speechMarks"))
}

func TestSupersededRunWritesNothing(t *testing.T) {
	synth := &stubSynth{res: &speech.Result{AudioURL: "https://blob/audio/doc-1.mp3", SpeechMarks: []models.SpeechMark{}}}
	h := newHarness(t, stubExtractor{text: "Hello."}, synth)
	h.seed(t, "doc-1", "https://files/doc.pdf", "application/pdf")
	ctx := context.Background()

	require.NoError(t, h.svc.Start(ctx, ProcessRequest{DocumentID: "doc-1", UserID: "user-1"}))
	first := h.dispatcher.last(t)
	require.NoError(t, h.svc.Start(ctx, ProcessRequest{DocumentID: "doc-1", UserID: "user-1", VoiceID: "Amy"}))
	second := h.dispatcher.last(t)

	_, err := h.svc.Run(ctx, first)
	assert.ErrorIs(t, err, ErrStaleRun)

	doc := h.doc(t, "doc-1")
	assert.Equal(t, models.DocStatusProcessing, doc.Status)
	assert.Empty(t, doc.ExtractedText)
	assert.Equal(t, second.RunID, doc.RunID)

	status, err := h.svc.Run(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusReady, status)
	assert.Equal(t, "Amy", synth.voice)
}

func TestDispatchFailurePersistsError(t *testing.T) {
	h := newHarness(t, stubExtractor{text: "x"}, &stubSynth{})
	h.seed(t, "doc-1", "https://files/doc.pdf", "application/pdf")
	h.dispatcher.err = errors.New("redis unavailable")

	err := h.svc.Start(context.Background(), ProcessRequest{DocumentID: "doc-1", UserID: "user-1"})

	require.Error(t, err)
	doc := h.doc(t, "doc-1")
	assert.Equal(t, models.DocStatusError, doc.Status)
	assert.Contains(t, doc.Error, "redis unavailable")
}

// racingStore deletes the record between Start's lookup and its processing mark.
type racingStore struct {
	*store.Store
}

func (r racingStore) StartRun(ctx context.Context, id, ownerID, runID string, fields map[string]string) error {
	doc, err := r.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := r.DeleteDocument(ctx, doc); err != nil {
		return err
	}
	return r.Store.StartRun(ctx, id, ownerID, runID, fields)
}

func TestStartOnDocumentDeletedConcurrently(t *testing.T) {
	h := newHarness(t, stubExtractor{text: "x"}, &stubSynth{})
	h.seed(t, "doc-1", "https://files/doc.pdf", "application/pdf")

	svc := NewService(Deps{
		Store:       racingStore{h.store},
		Extractor:   stubExtractor{text: "x"},
		Cleaner:     cleanup.NewCleaner(nil),
		Synthesizer: &stubSynth{},
	}, "")
	svc.SetDispatcher(h.dispatcher)

	err := svc.Start(context.Background(), ProcessRequest{DocumentID: "doc-1", UserID: "user-1"})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, h.mr.Exists("document:doc-1"))
	assert.Empty(t, h.dispatcher.tasks)
}

// cancellingDispatcher cancels the request context, as a disconnecting
// client would, then fails.
type cancellingDispatcher struct {
	cancel context.CancelFunc
	ctxErr error
}

func (d *cancellingDispatcher) Dispatch(ctx context.Context, task Task) error {
	d.cancel()
	d.ctxErr = ctx.Err()
	return errors.New("queue full")
}

func TestDispatchFailurePersistedAfterClientCancels(t *testing.T) {
	h := newHarness(t, stubExtractor{text: "x"}, &stubSynth{})
	h.seed(t, "doc-1", "https://files/doc.pdf", "application/pdf")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := &cancellingDispatcher{cancel: cancel}
	h.svc.SetDispatcher(d)

	err := h.svc.Start(ctx, ProcessRequest{DocumentID: "doc-1", UserID: "user-1"})

	require.Error(t, err)
	assert.NoError(t, d.ctxErr)
	doc := h.doc(t, "doc-1")
	assert.Equal(t, models.DocStatusError, doc.Status)
	assert.Contains(t, doc.Error, "queue full")
}

// End to end through the real providers: text extraction from a served
// file, cleanup without a model, synthesis on the secondary provider only.
func TestEndToEnd(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 stub"))
	}))
	defer files.Close()

	tts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3-audio"))
	}))
	defer tts.Close()

	testCases := []struct {
		name       string
		extracted  string
		wantStatus models.Status
		wantError  string
	}{
		{"hello world", "Hello world.", models.DocStatusReady, ""},
		{"whitespace only", "  \n\t  ", models.DocStatusError, extract.NoTextMessage},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			blobs := storage.NewMemory("https://blob.test")
			synth := speech.NewSynthesizer(nil, speech.NewOpenAISpeech(speech.OpenAIConfig{
				APIKey:  "sk-test",
				BaseURL: tts.URL + "/v1",
			}), blobs)
			ex := extract.NewService(textBackend(tc.extracted))

			h := newHarness(t, ex, synth)
			h.seed(t, "doc-1", files.URL+"/doc.pdf", "application/pdf")
			local := NewLocalDispatcher(context.Background(), h.svc, 2, 4)
			h.svc.SetDispatcher(local)

			require.NoError(t, h.svc.Start(context.Background(), ProcessRequest{DocumentID: "doc-1", UserID: "user-1"}))
			require.NoError(t, local.Shutdown())

			doc := h.doc(t, "doc-1")
			assert.Equal(t, tc.wantStatus, doc.Status)
			assert.Equal(t, tc.wantError, doc.Error)
			if tc.wantStatus == models.DocStatusReady {
				assert.Equal(t, "https://blob.test/audio/doc-1.mp3", doc.AudioURL)
				assert.Equal(t, []models.SpeechMark{}, doc.SpeechMarks)
				assert.Equal(t, "[]", h.mr.HGet("document:doc-1", "speechMarks"))
				assert.Equal(t, 1, blobs.Writes())
			} else {
				assert.Empty(t, doc.AudioURL)
				assert.Equal(t, 0, blobs.Len())
			}
		})
	}
}

type textBackend string

func (b textBackend) Name() string { return "text" }

func (b textBackend) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	return string(b), nil
}

func TestLocalDispatcherRejectsAfterShutdown(t *testing.T) {
	h := newHarness(t, stubExtractor{text: "x"}, &stubSynth{})
	local := NewLocalDispatcher(context.Background(), h.svc, 1, 1)
	require.NoError(t, local.Shutdown())

	err := local.Dispatch(context.Background(), Task{DocumentID: "doc-1"})
	assert.ErrorIs(t, err, ErrDispatcherClosed)
}

type blockingRunner struct {
	release chan struct{}
}

func (b blockingRunner) Run(ctx context.Context, task Task) (models.Status, error) {
	<-b.release
	return models.DocStatusReady, nil
}

func TestLocalDispatcherQueueFull(t *testing.T) {
	runner := blockingRunner{release: make(chan struct{})}
	local := NewLocalDispatcher(context.Background(), runner, 1, 1)
	ctx := context.Background()

	require.NoError(t, local.Dispatch(ctx, Task{DocumentID: "a"}))
	// The worker may or may not have picked up the first task yet; one more
	// fits either way, and a third cannot.
	require.Eventually(t, func() bool {
		return local.Dispatch(ctx, Task{DocumentID: "b"}) == nil
	}, time.Second, 5*time.Millisecond)
	err := local.Dispatch(ctx, Task{DocumentID: "c"})

	close(runner.release)
	require.NoError(t, local.Shutdown())
	assert.ErrorIs(t, err, ErrQueueFull)
}
