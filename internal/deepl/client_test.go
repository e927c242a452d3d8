package deepl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oukeidos/bisrt/internal/apperrors"
	"github.com/oukeidos/bisrt/internal/httpclient"
	"github.com/oukeidos/bisrt/internal/language"
)

func newTestClient(t *testing.T, source string, handler http.HandlerFunc) *Client {
	t.Helper()
	src, err := language.Resolve(source, true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	tgt, _ := language.Resolve("zh", false)
	c, err := NewClient("key:fx", src, tgt)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c.baseURL = server.URL
	return c
}

func TestNewClient_Endpoint(t *testing.T) {
	tgt, _ := language.Resolve("de", false)
	free, _ := NewClient("abc:fx", language.Language{}, tgt)
	pro, _ := NewClient("abc", language.Language{}, tgt)
	if free.baseURL != FreeBaseURL || pro.baseURL != ProBaseURL {
		t.Fatalf("unexpected endpoints %q / %q", free.baseURL, pro.baseURL)
	}
}

func TestNewClient_UnsupportedLanguage(t *testing.T) {
	th, _ := language.Resolve("th", false)
	if _, err := NewClient("k", language.Language{}, th); err == nil {
		t.Fatalf("expected error for target DeepL cannot produce")
	}
}

func TestClient_TranslateOne(t *testing.T) {
	c := newTestClient(t, "de", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "DeepL-Auth-Key key:fx" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.PostForm.Get("text") != "Welt" || r.PostForm.Get("target_lang") != "ZH-HANS" || r.PostForm.Get("source_lang") != "DE" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		fmt.Fprint(w, `{"translations":[{"detected_source_language":"DE","text":"世界"}]}`)
	})

	out, err := c.TranslateOne(context.Background(), "Welt")
	if err != nil {
		t.Fatalf("TranslateOne: %v", err)
	}
	if out != "世界" {
		t.Fatalf("TranslateOne = %q", out)
	}
	if u := c.Usage(); u.Requests != 1 || u.Characters != 4 {
		t.Fatalf("unexpected usage %+v", u)
	}
}

func TestClient_AutoSourceOmitsSourceLang(t *testing.T) {
	c := newTestClient(t, "auto", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if _, ok := r.PostForm["source_lang"]; ok {
			t.Errorf("source_lang should be omitted for auto-detect")
		}
		fmt.Fprint(w, `{"translations":[{"text":"你好"}]}`)
	})
	if _, err := c.TranslateOne(context.Background(), "Hallo"); err != nil {
		t.Fatalf("TranslateOne: %v", err)
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		status int
		kind   apperrors.Kind
	}{
		{http.StatusForbidden, apperrors.KindAuth},
		{StatusQuotaExceeded, apperrors.KindQuota},
		{http.StatusTooManyRequests, apperrors.KindRateLimit},
		{http.StatusBadRequest, apperrors.KindBadRequest},
		{http.StatusServiceUnavailable, apperrors.KindTransient},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, "de", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"message":"SECRET_SUBTITLE_LINE"}`)
			})
			_, err := c.TranslateOne(context.Background(), "Welt")
			if kind, _ := apperrors.KindOf(err); kind != tt.kind {
				t.Fatalf("kind = %q, want %q (err %v)", kind, tt.kind, err)
			}
		})
	}
}

func TestClient_EmptyTranslation(t *testing.T) {
	c := newTestClient(t, "de", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"translations":[]}`)
	})
	_, err := c.TranslateOne(context.Background(), "Welt")
	if kind, _ := apperrors.KindOf(err); kind != apperrors.KindValidation {
		t.Fatalf("kind = %q, want validation", kind)
	}
}

func TestClient_OversizedResponse(t *testing.T) {
	c := newTestClient(t, "de", func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != httpclient.UserAgent() {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Length", fmt.Sprint(httpclient.MaxResponseBytes+1))
		w.Write(make([]byte, httpclient.MaxResponseBytes+1))
	})

	_, err := c.TranslateOne(context.Background(), "Welt")
	if !errors.Is(err, httpclient.ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
	if kind, _ := apperrors.KindOf(err); kind != apperrors.KindTransient {
		t.Fatalf("kind = %q, want transient", kind)
	}
	if c.Usage().Requests != 0 {
		t.Fatalf("oversized reply must not be billed")
	}
}
