package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cryptodaily/newsroom/internal/models"
)

// IPFSStore pins audio artifacts to a Pinata-compatible pinning service and
// reads them back through a prioritized list of public gateways. Keys are
// global (not session-scoped): one authoritative artifact per
// (speaker, segment index), reused across conversations.
//
// Exists consults only the in-process CID index, so after a restart the first
// lookup for a key misses and the pipeline regenerates. Seed known CIDs with
// RegisterCID to avoid that.
type IPFSStore struct {
	jwt        string
	uploadURL  string
	gateways   []string
	perAttempt time.Duration
	httpClient *http.Client

	mu   sync.RWMutex
	cids map[string]string // key basename -> CID
}

// NewIPFSStore creates a pinning-service-backed store. gateways are tried in
// order on reads; perAttempt bounds each gateway attempt.
func NewIPFSStore(jwt, uploadURL string, gateways []string, perAttempt time.Duration) (*IPFSStore, error) {
	if jwt == "" {
		return nil, fmt.Errorf("pinning service JWT is required")
	}
	if len(gateways) == 0 {
		return nil, fmt.Errorf("at least one IPFS gateway is required")
	}
	if perAttempt <= 0 {
		perAttempt = 10 * time.Second
	}

	log.Info().
		Strs("gateways", gateways).
		Dur("per_attempt_timeout", perAttempt).
		Msg("IPFS audio store initialized")

	return &IPFSStore{
		jwt:        jwt,
		uploadURL:  uploadURL,
		gateways:   gateways,
		perAttempt: perAttempt,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		cids:       make(map[string]string),
	}, nil
}

type pinataUploadResponse struct {
	Data struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		CID  string `json:"cid"`
		Size int64  `json:"size"`
	} `json:"data"`
}

// Put uploads data to the pinning service and returns the CID. If a CID is
// already registered for the key, it is reused without re-uploading.
func (s *IPFSStore) Put(ctx context.Context, key Key, data []byte) (string, error) {
	if cid, ok := s.lookupCID(key); ok {
		log.Debug().Str("cid", cid).Str("key", key.Basename()).Msg("Reusing pinned audio CID")
		return cid, nil
	}

	timestamp := strings.ReplaceAll(time.Now().UTC().Format(time.RFC3339), ":", "-")
	fileName := fmt.Sprintf("%s_segment_%d_%s.mp3", strings.ToLower(string(key.Speaker)), key.Index, timestamp)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write multipart file: %w", err)
	}
	_ = mw.WriteField("name", fileName)
	_ = mw.WriteField("network", "public")
	keyvalues, _ := json.Marshal(map[string]string{
		"speaker":      string(key.Speaker),
		"segmentIndex": strconv.Itoa(key.Index),
		"sessionId":    key.SessionID.String(),
	})
	_ = mw.WriteField("keyvalues", string(keyvalues))
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.uploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.jwt)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload to pinning service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("pinning service returned %d: %s", resp.StatusCode, string(raw))
	}

	var uploaded pinataUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("decode pinning response: %w", err)
	}
	if uploaded.Data.CID == "" {
		return "", fmt.Errorf("pinning service returned no CID")
	}

	s.RegisterCID(key.Speaker, key.Index, uploaded.Data.CID)

	log.Info().
		Str("cid", uploaded.Data.CID).
		Str("file", fileName).
		Int("size_bytes", len(data)).
		Msg("Audio pinned to IPFS")

	return uploaded.Data.CID, nil
}

// Get fetches a CID from the gateway list in priority order. Each attempt is
// bounded by the per-attempt timeout; the first success wins. If every
// gateway reports the content missing the result is ErrNotFound; any other
// exhaustion surfaces the last transport error.
func (s *IPFSStore) Get(ctx context.Context, locator string) ([]byte, error) {
	var lastErr error
	allMissing := true

	for _, gw := range s.gateways {
		data, err := s.fetchFromGateway(ctx, gw, locator)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors404(err) {
			allMissing = false
		}
		lastErr = err
		log.Debug().Err(err).Str("gateway", gw).Str("cid", locator).Msg("Gateway fetch failed, trying next")
	}

	if allMissing {
		return nil, fmt.Errorf("cid %q: %w", locator, ErrNotFound)
	}
	return nil, fmt.Errorf("all gateways failed for cid %q: %w", locator, lastErr)
}

func (s *IPFSStore) fetchFromGateway(ctx context.Context, gateway, cid string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.perAttempt)
	defer cancel()

	url := strings.TrimSuffix(gateway, "/") + "/ipfs/" + cid
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errGatewayMissing
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}
	return data, nil
}

var errGatewayMissing = fmt.Errorf("content missing on gateway")

func errors404(err error) bool {
	return err == errGatewayMissing
}

// Exists reports whether a CID is registered for the key in this process.
func (s *IPFSStore) Exists(ctx context.Context, key Key) (string, bool, error) {
	cid, ok := s.lookupCID(key)
	return cid, ok, nil
}

// RegisterCID records a known CID for (speaker, index), e.g. from a previous
// run's results or an operator-supplied pin list.
func (s *IPFSStore) RegisterCID(speaker models.Speaker, index int, cid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cids[fmt.Sprintf("%s_%d", strings.ToLower(string(speaker)), index)] = cid
}

func (s *IPFSStore) lookupCID(key Key) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cid, ok := s.cids[key.Basename()]
	return cid, ok
}
