package chat

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// TokenEstimator counts prompt tokens, approximating by byte length when the
// encoding cannot be loaded.
type TokenEstimator struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

func (t *TokenEstimator) Count(text string) int {
	t.once.Do(func() {
		t.enc, t.err = tiktoken.GetEncoding(defaultEncoding)
	})
	if t.err != nil || t.enc == nil {
		return (len(text) + 3) / 4
	}
	return len(t.enc.Encode(text, nil, nil))
}
