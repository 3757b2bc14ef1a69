// Package preview builds the markup shown when the user picks files, before
// anything is sent to the service.
package preview

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ziadkadry99/flowchat/internal/client"
	"github.com/ziadkadry99/flowchat/internal/markup"
)

// DefaultCacheSize is used when the configured size is not positive.
const DefaultCacheSize = 64

const imageClass = "max-w-full max-h-full object-contain mx-auto"

// Code is the preview of a set of code files.
type Code struct {
	Markup string // one escaped <pre><code> block per file
	Text   string // the files' contents as the code pane would show them
}

// Previewer renders previews and caches them by content hash, so re-selecting
// the same files does not re-encode them.
type Previewer struct {
	cache *lru.Cache[string, string]
}

// New creates a previewer holding at most size entries.
func New(size int) (*Previewer, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("preview: create cache: %w", err)
	}
	return &Previewer{cache: c}, nil
}

// Code returns literal, escaped text blocks for files in selection order.
func (p *Previewer) Code(files []client.File) Code {
	var b strings.Builder
	texts := make([]string, 0, len(files))
	for _, f := range files {
		text := strings.ToValidUTF8(string(f.Content), "\uFFFD")
		texts = append(texts, text)
		b.WriteString(p.cached("code", f, func() string { return markup.CodeBlock(text) }))
	}
	return Code{Markup: b.String(), Text: strings.Join(texts, "\n")}
}

// Diagram returns an <img> element carrying f as a data URL.
func (p *Previewer) Diagram(f client.File) string {
	return p.cached("img", f, func() string {
		return fmt.Sprintf(`<img src="data:%s;base64,%s" alt="%s" class="%s">`,
			markup.Escape(f.MediaType()),
			base64.StdEncoding.EncodeToString(f.Content),
			markup.Escape(f.Name),
			imageClass)
	})
}

func (p *Previewer) cached(kind string, f client.File, build func() string) string {
	key := cacheKey(kind, f)
	if v, ok := p.cache.Get(key); ok {
		return v
	}
	v := build()
	p.cache.Add(key, v)
	return v
}

func cacheKey(kind string, f client.File) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(f.Name))
	h.Write([]byte{0})
	h.Write(f.Content)
	return hex.EncodeToString(h.Sum(nil))
}
