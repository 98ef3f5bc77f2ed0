package screening

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrEngineUnavailable means the engine handle never initialized; screening
// stays disabled until it is resolved.
var ErrEngineUnavailable = errors.New("screening engine unavailable")

// ByteArray marshals as a JSON array of numbers, which is the byte encoding
// the engine expects for credential file contents.
type ByteArray []byte

func (b ByteArray) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(v)))
	}
	sb.WriteByte(']')
	return []byte(sb.String()), nil
}

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	var nums []int
	if err := json.Unmarshal(data, &nums); err != nil {
		return err
	}
	out := make([]byte, len(nums))
	for i, n := range nums {
		out[i] = byte(n)
	}
	*b = out
	return nil
}

// FixedDomains pins the server topology for one screen call.
type FixedDomains struct {
	KeyserverDomains []string `json:"keyserver_domains"`
	HdbDomains       []string `json:"hdb_domains"`
}

// RequestConfig is the engine wire config for one screen call. RequestID must
// be unique per call.
type RequestConfig struct {
	Region              string       `json:"region"`
	EnumerationSettings any          `json:"enumeration_settings"`
	FixedDomains        FixedDomains `json:"fixed_domains"`
	IncludeDebugInfo    bool         `json:"include_debug_info"`
	RequestID           string       `json:"request_id"`
	UseHTTP             bool         `json:"use_http"`
	TokenContents       ByteArray    `json:"token_contents"`
	KeypairContents     ByteArray    `json:"keypair_contents"`
	KeypairPassphrase   string       `json:"keypair_passphrase"`
}

// Engine port: the single opaque screening call. Any failure must surface to
// the caller; it is never swallowed.
type Engine interface {
	Screen(ctx context.Context, sequence string, cfg RequestConfig) (*Response, error)
}
