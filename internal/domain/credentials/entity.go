package credentials

import "strings"

// Storage keys for the external key-value collaborator. Five fixed logical
// keys, no transactional guarantee across them.
const (
	KeyToken      = "securedna_token"
	KeyKeypair    = "securedna_keypair"
	KeyPassphrase = "securedna_passphrase"
	KeyKeyservers = "securedna_keyservers"
	KeyHDB        = "securedna_hdb"
)

// StorageKeys lists all five keys in write/clear order.
var StorageKeys = []string{KeyToken, KeyKeypair, KeyPassphrase, KeyKeyservers, KeyHDB}

// Default server topology.
const (
	DefaultKeyservers = "1.ks.prod.securedna.org,2.ks.prod.securedna.org,3.ks.prod.securedna.org"
	DefaultHDB        = "1.db.prod.securedna.org"
)

// Credentials holds the screening-request secrets and server-topology fields.
// Fields mutate only on direct user edits or explicit storage restoration,
// never as a side effect of screening.
type Credentials struct {
	Token      string `json:"token"`
	Keypair    string `json:"keypair"`
	Passphrase string `json:"passphrase"`
	Keyservers string `json:"keyservers"` // comma-separated host list
	HDB        string `json:"hdb"`
}

// KeyserverDomains parses the comma-separated list into trimmed non-empty
// hosts, order preserved. An empty result is passed through to the engine,
// which owns that error.
func (c Credentials) KeyserverDomains() []string {
	parts := strings.Split(c.Keyservers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if h := strings.TrimSpace(p); h != "" {
			out = append(out, h)
		}
	}
	return out
}

// HDBDomain returns the single trimmed HDB host.
func (c Credentials) HDBDomain() string { return strings.TrimSpace(c.HDB) }

// Store is the external storage collaborator: plain key-value get/set/remove.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}
