package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

func TestSession_Headers(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(WithUserAgent("lrc-test/1.0"), WithHeader("X-Extra", "yes"))
	session := client.NewSession()
	defer session.Close()

	if _, err := session.Get(context.Background(), server.URL); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	tests := map[string]string{
		"User-Agent":                "lrc-test/1.0",
		"Accept-Encoding":           DefaultAcceptEncoding,
		"Upgrade-Insecure-Requests": "1",
		"X-Extra":                   "yes",
	}
	for key, want := range tests {
		if got.Get(key) != want {
			t.Errorf("header %s = %q, want %q", key, got.Get(key), want)
		}
	}
}

func TestSession_ContentEncoding(t *testing.T) {
	payload := []byte("[00:01.23]Hello\n")

	tests := []struct {
		name     string
		encoding string
		encode   func([]byte) []byte
	}{
		{
			name:   "identity",
			encode: func(b []byte) []byte { return b },
		},
		{
			name:     "gzip",
			encoding: "gzip",
			encode: func(b []byte) []byte {
				var buf bytes.Buffer
				zw := gzip.NewWriter(&buf)
				zw.Write(b)
				zw.Close()
				return buf.Bytes()
			},
		},
		{
			name:     "zlib deflate",
			encoding: "deflate",
			encode: func(b []byte) []byte {
				var buf bytes.Buffer
				zw := zlib.NewWriter(&buf)
				zw.Write(b)
				zw.Close()
				return buf.Bytes()
			},
		},
		{
			name:     "raw deflate",
			encoding: "deflate",
			encode: func(b []byte) []byte {
				var buf bytes.Buffer
				fw, _ := flate.NewWriter(&buf, flate.DefaultCompression)
				fw.Write(b)
				fw.Close()
				return buf.Bytes()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				w.Write(tt.encode(payload))
			}))
			defer server.Close()

			session := NewClient().NewSession()
			defer session.Close()

			got, err := session.Get(context.Background(), server.URL)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("body = %q, want %q", got, payload)
			}
		})
	}
}

func TestSession_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	session := NewClient().NewSession()
	defer session.Close()

	_, err := session.Get(context.Background(), server.URL)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestSession_GetPageDecodesLatin1(t *testing.T) {
	// "Beyoncé" encoded as ISO-8859-1: é is the single byte 0xE9.
	page := []byte("<html><body><a class=\"title\" href=\"/x\">Beyonc\xe9</a></body></html>")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(page)
	}))
	defer server.Close()

	session := NewClient(WithPageEncoding(charmap.ISO8859_1)).NewSession()
	defer session.Close()

	doc, err := session.GetPage(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}

	if text := textOf(doc); !strings.Contains(text, "Beyoncé") {
		t.Errorf("decoded text = %q, want it to contain %q", text, "Beyoncé")
	}
}

func TestSession_ByteCounter(t *testing.T) {
	payload := strings.Repeat("x", 4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer server.Close()

	var total atomic.Int64
	session := NewClient(WithByteCounter(func(n int64) { total.Add(n) })).NewSession()
	defer session.Close()

	if _, err := session.Get(context.Background(), server.URL); err != nil {
		t.Fatal(err)
	}
	if total.Load() != int64(len(payload)) {
		t.Errorf("counted %d bytes, want %d", total.Load(), len(payload))
	}
}

func TestLookupEncoding(t *testing.T) {
	tests := []struct {
		name    string
		wantNil bool
		wantErr bool
	}{
		{"", true, false},
		{"utf-8", true, false},
		{"iso-8859-1", false, false},
		{"latin-1", false, false},
		{"windows-1252", false, false},
		{"klingon", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := LookupEncoding(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if (enc == nil) != tt.wantNil {
				t.Errorf("enc nil = %v, want %v", enc == nil, tt.wantNil)
			}
		})
	}

	if enc, _ := LookupEncoding("latin-1"); enc != charmap.ISO8859_1 {
		t.Error("latin-1 should map to ISO-8859-1, not windows-1252")
	}
}

func TestProgressWriter(t *testing.T) {
	var buf bytes.Buffer
	var calls int
	pw := &ProgressWriter{
		Writer: &buf,
		Total:  10,
		OnUpdate: func(written, total int64) {
			calls++
			if total != 10 {
				t.Errorf("total = %d, want 10", total)
			}
		},
	}

	pw.Write([]byte("hello"))
	pw.Write([]byte("world"))

	if pw.Written != 10 || calls != 2 || buf.String() != "helloworld" {
		t.Errorf("Written=%d calls=%d buf=%q", pw.Written, calls, buf.String())
	}
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
