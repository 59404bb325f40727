package payload

import (
	"encoding/json"

	"github.com/opencontainers/go-digest"

	"github.com/crmarques/liveops/faults"
	"github.com/crmarques/liveops/resource"
)

func DigestBytes(data []byte) digest.Digest {
	return digest.FromBytes(data)
}

func DigestString(data string) digest.Digest {
	return digest.FromString(data)
}

// DigestValue hashes the canonical JSON form of a normalized payload. Map keys
// are emitted sorted by encoding/json.
func DigestValue(value resource.Value) (digest.Digest, error) {
	normalized, err := Normalize(value)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return "", faults.NewTypedError(faults.InternalError, "failed to encode payload for digest", err)
	}
	return digest.FromBytes(encoded), nil
}

// ShortDigest is the first twelve hex characters of a digest, used in report
// details.
func ShortDigest(value digest.Digest) string {
	if value.Validate() != nil {
		return ""
	}
	encoded := value.Encoded()
	if len(encoded) > 12 {
		return encoded[:12]
	}
	return encoded
}
