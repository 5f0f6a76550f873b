package core

import (
	"github.com/google/uuid"

	"pkt.systems/glass/schema"
)

func newTabID() schema.TabID {
	return schema.TabID(uuid.NewString())
}
