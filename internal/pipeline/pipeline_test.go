package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mind-engage/mindengage-ocr/internal/engine"
	"github.com/mind-engage/mindengage-ocr/internal/eventlog"
	"github.com/mind-engage/mindengage-ocr/internal/imagecodec"
	"github.com/mind-engage/mindengage-ocr/internal/ocrerr"
)

/* ---------------- fakes ---------------- */

type staticReadiness engine.Status

func (s staticReadiness) Status() engine.Status { return engine.Status(s) }

var ready = staticReadiness{Available: true, ExecutablePath: "/usr/bin/tesseract", Version: "5.3.0"}

type countingDecoder struct {
	inner *imagecodec.Decoder
	err   error
	calls int
}

func (d *countingDecoder) Decode(data []byte) (imagecodec.Decoded, error) {
	d.calls++
	if d.err != nil {
		return imagecodec.Decoded{}, d.err
	}
	return d.inner.Decode(data)
}

type fakeRecognizer struct {
	mu    sync.Mutex
	text  string
	err   error
	panic bool
	calls int
	path  string
}

func (f *fakeRecognizer) Recognize(_ context.Context, path string, _ image.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.path = path
	if f.panic {
		panic("engine exploded")
	}
	return f.text, f.err
}

type memRecorder struct {
	mu  sync.Mutex
	got []eventlog.Outcome
	err error
}

func (m *memRecorder) Record(_ context.Context, o eventlog.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, o)
	return m.err
}

/* ---------------- helpers ---------------- */

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.SetGray(5, 5, color.Gray{})
	data, err := imagecodec.EncodePNG(img)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

type part struct {
	field, filename string
	data            []byte
	isFile          bool
}

func upload(t *testing.T, parts ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		if p.isFile {
			w, err := mw.CreateFormFile(p.field, p.filename)
			if err != nil {
				t.Fatal(err)
			}
			w.Write(p.data)
		} else {
			mw.WriteField(p.field, string(p.data))
		}
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/ocr", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func file(name string, data []byte) part {
	return part{field: FormField, filename: name, data: data, isFile: true}
}

func newPipeline(rd Readiness, rec *fakeRecognizer) (*Pipeline, *countingDecoder) {
	dec := &countingDecoder{inner: imagecodec.NewDecoder(0)}
	return New(rd, dec, rec), dec
}

func assertFailure(t *testing.T, env Envelope, kind ocrerr.Kind, status int, msg string) {
	t.Helper()
	if env.OK() {
		t.Fatalf("expected failure %s, got success %q", kind, env.Text)
	}
	if env.Failure.Kind != kind || env.Status() != status || env.Failure.Message != msg {
		t.Fatalf("got %+v, want kind=%s status=%d msg=%q", *env.Failure, kind, status, msg)
	}
}

/* ---------------- tests ---------------- */

func TestRunSuccessPreservesText(t *testing.T) {
	rec := &fakeRecognizer{text: "Test\n"}
	p, _ := newPipeline(ready, rec)

	env := p.Run(upload(t, file("test.png", pngBytes(t))))
	if !env.OK() || env.Text != "Test\n" || env.Status() != http.StatusOK {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if rec.path != "/usr/bin/tesseract" {
		t.Fatalf("recognizer got path %q", rec.path)
	}
}

func TestRunEmptyTextIsSuccess(t *testing.T) {
	p, _ := newPipeline(ready, &fakeRecognizer{text: ""})
	env := p.Run(upload(t, file("blank.png", pngBytes(t))))
	if !env.OK() || env.Text != "" {
		t.Fatalf("expected empty success, got %+v", env)
	}
}

func TestRunValidation(t *testing.T) {
	cases := map[string]struct {
		req  func(t *testing.T) *http.Request
		kind ocrerr.Kind
		msg  string
	}{
		"no field": {
			req:  func(t *testing.T) *http.Request { return upload(t, part{field: "other", data: []byte("x")}) },
			kind: ocrerr.MissingImage, msg: MsgMissingImage,
		},
		"not multipart": {
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/ocr", strings.NewReader(`{"image":"x"}`))
			},
			kind: ocrerr.MissingImage, msg: MsgMissingImage,
		},
		"empty filename": {
			req:  func(t *testing.T) *http.Request { return upload(t, file("", nil)) },
			kind: ocrerr.EmptySelection, msg: MsgEmptySelection,
		},
		"corrupt": {
			req:  func(t *testing.T) *http.Request { return upload(t, file("x.png", []byte("\x89PNG garbage"))) },
			kind: ocrerr.InvalidImage, msg: MsgInvalidImage,
		},
		"zero bytes": {
			req:  func(t *testing.T) *http.Request { return upload(t, file("x.png", nil)) },
			kind: ocrerr.InvalidImage, msg: MsgInvalidImage,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := &fakeRecognizer{text: "never"}
			p, _ := newPipeline(ready, rec)
			assertFailure(t, p.Run(tc.req(t)), tc.kind, http.StatusBadRequest, tc.msg)
			if rec.calls != 0 {
				t.Fatalf("recognizer must not run on invalid input")
			}
		})
	}
}

func TestRunEngineDownSkipsDecode(t *testing.T) {
	rec := &fakeRecognizer{text: "never"}
	p, dec := newPipeline(staticReadiness{LastError: ocrerr.EngineUnavailable}, rec)

	for _, req := range []*http.Request{
		upload(t, file("test.png", pngBytes(t))),
		upload(t, file("x.png", []byte("corrupt"))),
		upload(t),
	} {
		assertFailure(t, p.Run(req), ocrerr.ServiceUnavailable, http.StatusInternalServerError, MsgNotConfigured)
	}
	if dec.calls != 0 || rec.calls != 0 {
		t.Fatalf("decode=%d recognize=%d; neither may run while the engine is down", dec.calls, rec.calls)
	}
}

func TestRunRecognitionFailure(t *testing.T) {
	p, _ := newPipeline(ready, &fakeRecognizer{err: errors.New("/usr/bin/tesseract: exit status 1")})
	env := p.Run(upload(t, file("test.png", pngBytes(t))))
	assertFailure(t, env, ocrerr.RecognitionFailed, http.StatusInternalServerError, MsgRecognition)
	if strings.Contains(env.Failure.Message, "/usr/bin") {
		t.Fatalf("host details leaked into client message")
	}
}

func TestRunUnclassifiedDecoderErrorIsInvalidImage(t *testing.T) {
	rec := &fakeRecognizer{}
	p, dec := newPipeline(ready, rec)
	dec.err = errors.New("libpng exploded")
	assertFailure(t, p.Run(upload(t, file("a.png", pngBytes(t)))), ocrerr.InvalidImage, http.StatusBadRequest, MsgInvalidImage)
}

func TestRunPanicBecomesInternalError(t *testing.T) {
	rec := &memRecorder{}
	p, _ := newPipeline(ready, &fakeRecognizer{panic: true})
	p.Recorder = rec
	assertFailure(t, p.Run(upload(t, file("a.png", pngBytes(t)))), ocrerr.InternalError, http.StatusInternalServerError, MsgInternal)
	if len(rec.got) != 1 || rec.got[0].Kind != ocrerr.InternalError {
		t.Fatalf("panic outcome not recorded: %+v", rec.got)
	}
}

func TestRunTooLarge(t *testing.T) {
	p, _ := newPipeline(ready, &fakeRecognizer{})
	req := upload(t, file("big.png", bytes.Repeat([]byte{1}, 4096)))
	req.Body = http.MaxBytesReader(httptest.NewRecorder(), req.Body, 512)
	assertFailure(t, p.Run(req), ocrerr.ImageTooLarge, http.StatusRequestEntityTooLarge, MsgTooLarge)
}

func TestRunIsIdempotent(t *testing.T) {
	p, _ := newPipeline(ready, &fakeRecognizer{text: "Same\n"})
	data := pngBytes(t)
	a := p.Run(upload(t, file("a.png", data)))
	b := p.Run(upload(t, file("a.png", data)))
	if !a.OK() || a.Text != b.Text {
		t.Fatalf("expected identical results, got %q and %q", a.Text, b.Text)
	}
}

func TestRunRecordsOutcome(t *testing.T) {
	rec := &memRecorder{err: errors.New("db down")}
	p, _ := newPipeline(ready, &fakeRecognizer{text: "hello"})
	p.Recorder = rec

	data := pngBytes(t)
	env := p.Run(upload(t, file("a.png", data)))
	if !env.OK() {
		t.Fatalf("recorder failure must not change the response: %+v", env)
	}
	if len(rec.got) != 1 {
		t.Fatalf("expected one outcome, got %d", len(rec.got))
	}
	o := rec.got[0]
	if o.Kind != ocrerr.KindNone || o.ImageBytes != len(data) || o.Format != "png" || o.TextLen != 5 || o.Route != "/ocr" {
		t.Fatalf("unexpected outcome %+v", o)
	}
	if o.Fingerprint != eventlog.Fingerprint(data) {
		t.Fatalf("fingerprint mismatch")
	}
}

func TestRunConcurrent(t *testing.T) {
	p, _ := newPipeline(ready, &fakeRecognizer{text: "ok"})
	data := pngBytes(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		req := upload(t, file("a.png", data))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if env := p.Run(req); !env.OK() {
				t.Errorf("unexpected failure %+v", env.Failure)
			}
		}()
	}
	wg.Wait()
}

func TestHealth(t *testing.T) {
	p, _ := newPipeline(ready, &fakeRecognizer{})
	if st, env := p.Health(); !env.OK() || env.Text != MsgRunning || st.Version != "5.3.0" {
		t.Fatalf("unexpected health %+v %+v", st, env)
	}
	p, _ = newPipeline(staticReadiness{}, &fakeRecognizer{})
	_, env := p.Health()
	assertFailure(t, env, ocrerr.ServiceUnavailable, http.StatusInternalServerError, MsgNotConfigured)
}

func TestFailUnknownKind(t *testing.T) {
	env := Fail(ocrerr.Kind("mystery"))
	assertFailure(t, env, ocrerr.InternalError, http.StatusInternalServerError, MsgInternal)
	env = Fail(ocrerr.EngineSelfTestFailed)
	if env.Kind() != ocrerr.ServiceUnavailable {
		t.Fatalf("engine faults must surface as ServiceUnavailable, got %s", env.Kind())
	}
}
