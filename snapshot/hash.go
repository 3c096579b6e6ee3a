package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"sort"
)

// CanonicalEncode produces the deterministic byte encoding of a Spec used
// both for hashing and for round-trip tests: entities sorted by id,
// integers little-endian, per spec §6's wire details.
func CanonicalEncode(s Spec) []byte {
	var buf bytes.Buffer

	tasks := append([]Task(nil), s.Tasks...)
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	for _, t := range tasks {
		writeString(&buf, t.ID)
		writeString(&buf, t.DisplayName)
		writeString(&buf, string(t.Kind))
		writeString(&buf, string(t.Split))
		writeString(&buf, string(t.Join))
		writeUint32(&buf, t.MaxTicks)
		writeUint32(&buf, uint32(t.Priority))
		writeString(&buf, t.GuardRef)
		writeUint32(&buf, uint32(t.PatternID))
		writeUint32(&buf, uint32(uint64(t.Timeout)))
		writeUint32(&buf, uint32(uint64(t.Timeout)>>32))
		writeString(&buf, t.CancelRegion)
		writeUint32(&buf, uint32(t.MIThreshold))
		writeUint32(&buf, uint32(t.MIPlannedCount))
	}

	conds := append([]Condition(nil), s.Conditions...)
	sort.Slice(conds, func(i, j int) bool { return conds[i].ID < conds[j].ID })
	for _, c := range conds {
		writeString(&buf, c.ID)
		writeString(&buf, c.Label)
		writeString(&buf, string(c.Role))
		writeString(&buf, c.Region)
	}

	flows := append([]Flow(nil), s.Flows...)
	sort.Slice(flows, func(i, j int) bool {
		if flows[i].Source != flows[j].Source {
			return flows[i].Source < flows[j].Source
		}
		return flows[i].Target < flows[j].Target
	})
	for _, f := range flows {
		writeString(&buf, f.Source)
		writeString(&buf, f.Target)
		writeString(&buf, f.Predicate)
	}

	if s.ParentHash != nil {
		buf.Write(s.ParentHash[:])
	}
	writeString(&buf, s.Author)

	return buf.Bytes()
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// CanonicalHash computes the 256-bit content address of a Spec.
func CanonicalHash(s Spec) Hash {
	return sha256.Sum256(CanonicalEncode(s))
}
