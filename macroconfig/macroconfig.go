// Package macroconfig loads the trusted configuration of a signature macro
// and normalizes the historical shapes it may be stored in.
package macroconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"tideland.dev/go/slices"

	"github.com/sigvault/sigvault/fingerprint"
	"github.com/sigvault/sigvault/internal/utils"
	"github.com/sigvault/sigvault/policy"
	"github.com/sigvault/sigvault/storage/model"
)

// MacroConfig is the canonical configuration of a signature macro
type MacroConfig struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	policy.SignerConfiguration
}

// Fingerprint returns the content fingerprint of the macro on pageID
func (c MacroConfig) Fingerprint(pageID string) fingerprint.Fingerprint {
	return fingerprint.Compute(pageID, c.Title, c.Content)
}

// rawConfig knows every field that was ever used in a stored configuration
type rawConfig struct {
	Title          string          `json:"title"`
	Content        string          `json:"content"`
	Signers        json.RawMessage `json:"signers"`
	SignerGroups   []string        `json:"signerGroups"`
	InheritViewers *bool           `json:"inheritViewers"`
	InheritEditors *bool           `json:"inheritEditors"`
	MaxSignatures  json.RawMessage `json:"maxSignatures"`

	// legacy
	Groups            []string        `json:"groups"`
	InheritPermission string          `json:"inheritPermission"`
	MaxSigners        json.RawMessage `json:"maxSigners"`
}

var knownKeys = utils.StructTagNames(rawConfig{}, "json")

// Parse decodes a stored configuration in any of its historical shapes into
// the canonical MacroConfig
func Parse(data []byte) (*MacroConfig, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "macro config: invalid json")
	}
	warnUnknownKeys(data)

	conf := &MacroConfig{
		Title:   raw.Title,
		Content: raw.Content,
	}
	var err error
	if conf.Signers, err = parseSigners(raw.Signers); err != nil {
		return nil, err
	}
	groups := raw.SignerGroups
	if groups == nil {
		groups = raw.Groups
	}
	conf.SignerGroups = cleanList(groups)
	if conf.InheritViewers, conf.InheritEditors, err = parseInheritance(raw); err != nil {
		return nil, err
	}
	maxRaw := raw.MaxSignatures
	if isAbsent(maxRaw) {
		maxRaw = raw.MaxSigners
	}
	if conf.MaxSignatures, err = parseMax(maxRaw); err != nil {
		return nil, err
	}
	return conf, nil
}

func warnUnknownKeys(data []byte) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	if unknown := slices.Subtract(keys, knownKeys); len(unknown) > 0 {
		log.WithField("keys", unknown).Warn("ignoring unknown macro config keys")
	}
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// parseSigners accepts a list of account ids or a comma separated string
func parseSigners(raw json.RawMessage) ([]string, error) {
	if isAbsent(raw) {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return cleanList(list), nil
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err != nil {
		return nil, errors.New("macro config: signers must be a list or a comma separated string")
	}
	return cleanList(strings.Split(joined, ",")), nil
}

// cleanList trims all entries and drops empty and duplicate ones, keeping the
// original order
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || slices.IsMember(v, out) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func parseInheritance(raw rawConfig) (viewers, editors bool, err error) {
	if raw.InheritViewers != nil || raw.InheritEditors != nil {
		if raw.InheritViewers != nil {
			viewers = *raw.InheritViewers
		}
		if raw.InheritEditors != nil {
			editors = *raw.InheritEditors
		}
		return
	}
	switch strings.ToLower(strings.TrimSpace(raw.InheritPermission)) {
	case "", "none":
	case "view":
		viewers = true
	case "edit":
		editors = true
	case "both":
		viewers, editors = true, true
	default:
		err = errors.Errorf("macro config: unknown inheritPermission '%s'", raw.InheritPermission)
	}
	return
}

// parseMax accepts a number, a numeric string, or null / "" / "unlimited"
// for no limit
func parseMax(raw json.RawMessage) (*int, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.New("macro config: maxSignatures must be a number")
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "unlimited") {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, errors.Errorf("macro config: invalid maxSignatures '%s'", s)
	}
	return &n, nil
}

// Loader retrieves macro configurations from a model.MacroConfigStore
type Loader struct {
	Store model.MacroConfigStore
}

// Load returns the normalized configuration of macroID on pageID. A
// model.NotFoundError is returned if there is none.
func (l Loader) Load(ctx context.Context, pageID, macroID string) (*MacroConfig, error) {
	raw, err := l.Store.Get(ctx, pageID, macroID)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, model.NotFoundErrorFmt("no configuration for macro '%s' on page '%s'", macroID, pageID)
	}
	return Parse(raw)
}
