package screening

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Permission enum: the binary synthesis verdict
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

func ParsePermission(s string) (Permission, error) {
	switch Permission(s) {
	case PermissionGranted, PermissionDenied:
		return Permission(s), nil
	}
	return "", fmt.Errorf("unknown synthesis_permission: %q", s)
}

func (p *Permission) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParsePermission(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// HitType enum: which alphabet the hazard was matched in
type HitType string

const (
	HitTypeNucleotide HitType = "nuc"
	HitTypeAminoAcid  HitType = "aa"
)

func ParseHitType(s string) (HitType, error) {
	switch HitType(s) {
	case HitTypeNucleotide, HitTypeAminoAcid:
		return HitType(s), nil
	}
	return "", fmt.Errorf("unknown hit type: %q", s)
}

func (t *HitType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseHitType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// LineRange is [start, end], 1-based inclusive, into the submitted FASTA text.
type LineRange [2]int

// HitRegion is one contiguous matched span within a record's sequence.
// Offsets are zero-based half-open. The stored Seq is the matched substring;
// the region's true length is End-Start, never len(Seq).
type HitRegion struct {
	Seq   string `json:"seq"`
	Start int    `json:"seq_range_start"`
	End   int    `json:"seq_range_end"`
}

// Length is the display length of the region.
func (r HitRegion) Length() int { return r.End - r.Start }

// HitOrganism is one candidate organism for a hazard hit.
type HitOrganism struct {
	Name             string       `json:"name"`
	OrganismType     OrganismType `json:"organism_type"`
	AccessionNumbers []string     `json:"ans"`
	Tags             []Tag        `json:"tags"`
}

// HazardHits is one detected hazard within a record. Organisms is the full
// candidate list and is not guaranteed to contain (or agree with) the
// most-likely organism; reconciling the two is the projector's job.
type HazardHits struct {
	Type               HitType       `json:"type"`
	IsWildType         *bool         `json:"is_wild_type"`
	HitRegions         []HitRegion   `json:"hit_regions"`
	MostLikelyOrganism HitOrganism   `json:"most_likely_organism"`
	Organisms          []HitOrganism `json:"organisms"`
}

// RegionSpan is the summed display length of all hit regions.
func (h HazardHits) RegionSpan() int {
	total := 0
	for _, r := range h.HitRegions {
		total += r.Length()
	}
	return total
}

// FastaRecordHits is one input record's results. An empty Hazards slice means
// a clean record.
type FastaRecordHits struct {
	Header         string       `json:"fasta_header"`
	LineRange      LineRange    `json:"line_number_range"`
	SequenceLength int          `json:"sequence_length"`
	Hazards        []HazardHits `json:"hits_by_hazard"`
}

// DisplayHeader falls back to an ordinal label when the FASTA header is empty.
// ordinal is zero-based.
func (f FastaRecordHits) DisplayHeader(ordinal int) string {
	if f.Header != "" {
		return f.Header
	}
	return fmt.Sprintf("Record %d", ordinal+1)
}

// WarningDiagnostic enum
type WarningDiagnostic string

const (
	WarnCertificateExpiringSoon WarningDiagnostic = "certificate_expiring_soon"
	WarnTooShort                WarningDiagnostic = "too_short"
	WarnTooAmbiguous            WarningDiagnostic = "too_ambiguous"
)

func ParseWarningDiagnostic(s string) (WarningDiagnostic, error) {
	switch WarningDiagnostic(s) {
	case WarnCertificateExpiringSoon, WarnTooShort, WarnTooAmbiguous:
		return WarningDiagnostic(s), nil
	}
	return "", fmt.Errorf("unknown warning diagnostic: %q", s)
}

func (d *WarningDiagnostic) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseWarningDiagnostic(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ErrorDiagnostic enum
type ErrorDiagnostic string

const (
	DiagNotFound            ErrorDiagnostic = "not_found"
	DiagInternalServerError ErrorDiagnostic = "internal_server_error"
	DiagUnauthorized        ErrorDiagnostic = "unauthorized"
	DiagInvalidInput        ErrorDiagnostic = "invalid_input"
	DiagRequestTooBig       ErrorDiagnostic = "request_too_big"
	DiagTooManyRequests     ErrorDiagnostic = "too_many_requests"
)

func ParseErrorDiagnostic(s string) (ErrorDiagnostic, error) {
	switch ErrorDiagnostic(s) {
	case DiagNotFound, DiagInternalServerError, DiagUnauthorized,
		DiagInvalidInput, DiagRequestTooBig, DiagTooManyRequests:
		return ErrorDiagnostic(s), nil
	}
	return "", fmt.Errorf("unknown error diagnostic: %q", s)
}

func (d *ErrorDiagnostic) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseErrorDiagnostic(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Warning is an informational entry inside a successful response. It never
// changes the meaning of the permission verdict.
type Warning struct {
	Diagnostic     WarningDiagnostic `json:"diagnostic"`
	AdditionalInfo string            `json:"additional_info"`
	LineRange      *LineRange        `json:"line_number_range,omitempty"`
}

// Title renders the diagnostic code as a human heading ("Too Short").
func (w Warning) Title() string { return titleFromDiagnostic(string(w.Diagnostic)) }

// Error is a server-side diagnostic entry inside a response. Like Warning it
// is informational and does not represent a call failure.
type Error struct {
	Diagnostic     ErrorDiagnostic `json:"diagnostic"`
	AdditionalInfo string          `json:"additional_info"`
	LineRange      *LineRange      `json:"line_number_range,omitempty"`
}

func (e Error) Title() string { return titleFromDiagnostic(string(e.Diagnostic)) }

func (e Error) Error() string {
	if e.AdditionalInfo == "" {
		return string(e.Diagnostic)
	}
	return string(e.Diagnostic) + ": " + e.AdditionalInfo
}

func titleFromDiagnostic(code string) string {
	words := strings.Split(code, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Provenance enum for debug hits
type Provenance string

const (
	ProvenanceDnaNormal           Provenance = "DnaNormal"
	ProvenanceDnaRunt             Provenance = "DnaRunt"
	ProvenanceAAWildType          Provenance = "AAWildType"
	ProvenanceAASingleReplacement Provenance = "AASingleReplacement"
	ProvenanceAADoubleReplacement Provenance = "AADoubleReplacement"
	ProvenanceAASampled           Provenance = "AASampled"
)

// DebugHit is a per-window trace entry, pass-through for rendering purposes.
type DebugHit struct {
	Seq                string        `json:"seq"`
	Index              int           `json:"index"`
	MostLikelyOrganism HitOrganism   `json:"most_likely_organism"`
	Organisms          []HitOrganism `json:"organisms"`
	AnLikelihood       float64       `json:"an_likelihood"`
	Provenance         Provenance    `json:"provenance"`
	ReverseScreened    bool          `json:"reverse_screened"`
	WindowGap          int           `json:"window_gap"`
}

type DebugFastaRecordHits struct {
	Header         string     `json:"fasta_header"`
	LineRange      LineRange  `json:"line_number_range"`
	SequenceLength int        `json:"sequence_length"`
	Hits           []DebugHit `json:"hits"`
}

type DebugInfo struct {
	GroupedHits []DebugFastaRecordHits `json:"grouped_hits"`
}

// VerifiableResponse is the cryptographic envelope, opaque pass-through only.
type VerifiableResponse struct {
	SynthclientVersion string `json:"synthclient_version"`
	ResponseJSON       string `json:"response_json"`
	Signature          string `json:"signature"`
	PublicKey          string `json:"public_key"`
	History            string `json:"history"`
	SHA3256            string `json:"sha3_256"`
}

// Response is the full result of one screen call. It is created atomically by
// the engine, immutable afterwards, and held for the lifetime of one result
// session. Derived views are always fresh projections, never in-place edits.
type Response struct {
	SynthesisPermission Permission          `json:"synthesis_permission"`
	ProviderReference   string              `json:"provider_reference,omitempty"`
	HitsByRecord        []FastaRecordHits   `json:"hits_by_record"`
	Verifiable          *VerifiableResponse `json:"verifiable,omitempty"`
	Warnings            []Warning           `json:"warnings"`
	Errors              []Error             `json:"errors"`
	DebugInfo           *DebugInfo          `json:"debug_info,omitempty"`
}
