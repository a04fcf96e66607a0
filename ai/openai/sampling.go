// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// samplingClient fills in chat request fields the langchaingo client accepts
// as call options but never serializes. Currently that is top_p.
type samplingClient struct {
	next *http.Client
	topP float64
}

func newSamplingClient(next *http.Client, topP float64) *samplingClient {
	if next == nil {
		next = http.DefaultClient
	}
	return &samplingClient{next: next, topP: topP}
}

// Do implements the langchaingo openai Doer interface.
func (c *samplingClient) Do(req *http.Request) (*http.Response, error) {
	if c.topP > 0 && req.Body != nil && strings.HasSuffix(req.URL.Path, "/chat/completions") {
		if err := c.rewrite(req); err != nil {
			return nil, err
		}
	}
	return c.next.Do(req)
}

func (c *samplingClient) rewrite(req *http.Request) error {
	raw, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return fmt.Errorf("read chat request: %w", err)
	}

	body := withTopP(raw, c.topP)
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return nil
}

// withTopP sets top_p on a JSON chat request unless the caller already did.
// Bodies that are not JSON objects pass through unchanged.
func withTopP(raw []byte, topP float64) []byte {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return raw
	}
	if _, ok := fields["top_p"]; ok {
		return raw
	}
	value, err := json.Marshal(topP)
	if err != nil {
		return raw
	}
	fields["top_p"] = value
	out, err := json.Marshal(fields)
	if err != nil {
		return raw
	}
	return out
}
