package serializer

import (
	"encoding/json"

	"github.com/colorful-bubbles/idb-keyval/lib/record"
)

// NewJSONSerializer creates a new serializer using json encoding.
// This is the canonical on-disk schema of the Expire Index.
func NewJSONSerializer() ISerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the ISerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ISerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(rec record.ExpireRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func (j jsonSerializerImpl) Deserialize(b []byte, rec *record.ExpireRecord) error {
	return json.Unmarshal(b, rec)
}
