package sites

import (
	"encoding/hex"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// digestMode encodes with Core Deterministic Encoding so the same activation
// state always hashes to the same digest.
var digestMode cbor.EncMode

func init() {
	var err error
	digestMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("sites: CBOR encoder initialization failed: " + err.Error())
	}
}

// Digest is a BLAKE3 hash of a configuration's activation state.
type Digest [32]byte

// String returns the digest as lowercase hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex characters.
func (d Digest) Short() string {
	return d.String()[:12]
}

type digestFeature struct {
	Name       string `cbor:"1,keyasint"`
	Version    string `cbor:"2,keyasint"`
	Configured bool   `cbor:"3,keyasint"`
	URL        string `cbor:"4,keyasint,omitempty"`
}

type digestSite struct {
	Location string          `cbor:"1,keyasint"`
	Features []digestFeature `cbor:"2,keyasint"`
}

// Digest hashes the site order, the features of each site and whether each
// is configured. IDs, timestamps and activities are excluded, so two passes
// that produce the same activation state have equal digests.
func (c *Configuration) Digest() (Digest, error) {
	var state []digestSite
	if c != nil {
		state = make([]digestSite, 0, len(c.Sites))
		for _, cs := range c.Sites {
			ds := digestSite{Location: cs.Location()}
			for _, ref := range cs.Policy.References() {
				ds.Features = append(ds.Features, digestFeature{
					Name:       ref.ID.Name,
					Version:    ref.ID.Version,
					Configured: cs.Policy.IsConfigured(ref),
					URL:        ref.URL,
				})
			}
			state = append(state, ds)
		}
	}

	data, err := digestMode.Marshal(state)
	if err != nil {
		return Digest{}, err
	}
	return Digest(blake3.Sum256(data)), nil
}
