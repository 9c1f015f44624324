package clickhouse

import (
	"testing"

	"github.com/edgeflare/iotbridge/pkg/ruleengine"
	"github.com/edgeflare/iotbridge/pkg/sink"
)

func TestEncodeTagsPreservesOrder(t *testing.T) {
	rec := &ruleengine.Record{Tags: ruleengine.NewOrderedTags()}
	rec.Tags.Set("b", "2")
	rec.Tags.Set("a", "1")

	got := encodeTags(rec)
	if got != `{"b":"2","a":"1"}` {
		t.Fatalf("got %q", got)
	}
}

func TestRegistersUnderClickHouseType(t *testing.T) {
	c, err := sink.New(sink.TypeClickHouse)
	if err != nil {
		t.Fatal(err)
	}
	if c.Type() != sink.ConnectorTypePub {
		t.Fatalf("Type() = %v, want ConnectorTypePub", c.Type())
	}
}
