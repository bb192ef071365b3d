package openai

import (
	"sync/atomic"

	"github.com/pkoukk/tiktoken-go"
)

// Doubao models are unknown to tiktoken; cl100k_base is close enough for
// sizing replies when the stream carries no usage block.
const estimateEncoding = "cl100k_base"

var enc atomic.Pointer[tiktoken.Tiktoken]

// LoadEncoding fetches the BPE ranks used for reply size estimates. It may hit
// the network on a cold cache, so call it once at startup, off the request
// path. Until it succeeds, estimates are skipped.
func LoadEncoding() error {
	e, err := tiktoken.GetEncoding(estimateEncoding)
	if err != nil {
		return err
	}
	enc.Store(e)
	return nil
}

func estimateTokens(text string) (int, bool) {
	e := enc.Load()
	if text == "" || e == nil {
		return 0, false
	}
	return len(e.Encode(text, nil, nil)), true
}
