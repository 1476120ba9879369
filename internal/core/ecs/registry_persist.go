package ecs

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/prismengine/prism/internal/persist"
)

// preallocLimit bounds slice and map capacity hints taken from on-disk
// counts. Larger collections grow through append instead.
const preallocLimit = 1024

// SerializeEntity writes one entity frame: identity (ID, UUID, name),
// metadata, then a (typeID, component-bytes) pair for every set mask bit.
// Component payloads are encoded into their own sub-buffers so a reader
// that does not know a type can skip its bytes without losing alignment.
func (r *Registry) SerializeEntity(id EntityID, s persist.Serializer) error {
	r.entityMu.RLock()
	defer r.entityMu.RUnlock()
	md, ok := r.meta[id]
	if !ok {
		return fmt.Errorf("serialize entity %d: %w", id, ErrInvalidEntity)
	}
	return r.serializeEntityLocked(id, md, s)
}

func (r *Registry) serializeEntityLocked(id EntityID, md *Metadata, s persist.Serializer) error {
	if err := s.BeginObject(persist.TagEntity); err != nil {
		return err
	}
	if err := s.WriteUint32("id", uint32(id)); err != nil {
		return err
	}
	if err := s.WriteString("uuid", md.UUID); err != nil {
		return err
	}
	if err := s.WriteString("name", md.Name); err != nil {
		return err
	}
	if err := s.WriteBool("active", md.Active); err != nil {
		return err
	}
	if err := s.WriteEntityRef("parent", uint32(md.Parent)); err != nil {
		return err
	}

	tags := md.sortedTags()
	if err := s.BeginArray("tags", len(tags)); err != nil {
		return err
	}
	for _, t := range tags {
		if err := s.WriteString("tag", t); err != nil {
			return err
		}
	}
	if err := s.EndArray(); err != nil {
		return err
	}

	// Encode each component first so the array count reflects only the
	// ones that actually serialized.
	type pair struct {
		tid  TypeID
		data []byte
	}
	mask := r.masks[id]
	pairs := make([]pair, 0, mask.Count())
	r.poolMu.RLock()
	for _, tid := range mask.Bits() {
		p, ok := r.pools[tid]
		if !ok {
			continue
		}
		sub := persist.NewBinaryWriter()
		if err := p.SerializeComponent(id, sub); err != nil {
			r.log.Warn("component serialization failed, skipping",
				zap.Uint32("entity", uint32(id)),
				zap.Uint8("type", uint8(tid)),
				zap.Error(err))
			continue
		}
		pairs = append(pairs, pair{tid: tid, data: sub.Bytes()})
	}
	r.poolMu.RUnlock()

	if err := s.BeginArray("components", len(pairs)); err != nil {
		return err
	}
	for _, pr := range pairs {
		if err := s.WriteUint8("type", uint8(pr.tid)); err != nil {
			return err
		}
		if err := s.WriteBytes("data", pr.data); err != nil {
			return err
		}
	}
	if err := s.EndArray(); err != nil {
		return err
	}
	return s.EndObject()
}

// DeserializeEntity reads one entity frame into an already-created entity.
// Components referencing unknown type IDs are skipped with a warning. The
// frame's stored parent reference is applied only when it is still a live
// ID; cross-session parent remapping is DeserializeAll's job.
func (r *Registry) DeserializeEntity(id EntityID, d persist.Deserializer) error {
	frame, err := readEntityFrame(d)
	if err != nil {
		return err
	}
	return r.applyEntityFrame(id, frame, true)
}

// entityFrame is the decoded wire form of one entity, held before being
// applied so a bad frame never half-mutates the registry.
type entityFrame struct {
	storedID uint32
	uuid     string
	name     string
	active   bool
	parent   uint32
	tags     []string
	comps    []componentFrame
}

type componentFrame struct {
	tid  TypeID
	data []byte
}

func readEntityFrame(d persist.Deserializer) (*entityFrame, error) {
	if err := d.BeginObject(persist.TagEntity); err != nil {
		return nil, err
	}
	f := &entityFrame{}
	var err error
	if f.storedID, err = d.ReadUint32("id"); err != nil {
		return nil, err
	}
	if f.uuid, err = d.ReadString("uuid"); err != nil {
		return nil, err
	}
	if f.name, err = d.ReadString("name"); err != nil {
		return nil, err
	}
	if f.active, err = d.ReadBool("active"); err != nil {
		return nil, err
	}
	if f.parent, err = d.ReadEntityRef("parent"); err != nil {
		return nil, err
	}

	nTags, err := d.BeginArray("tags")
	if err != nil {
		return nil, err
	}
	for i := 0; i < nTags; i++ {
		t, err := d.ReadString("tag")
		if err != nil {
			return nil, err
		}
		f.tags = append(f.tags, t)
	}
	if err := d.EndArray(); err != nil {
		return nil, err
	}

	nComps, err := d.BeginArray("components")
	if err != nil {
		return nil, err
	}
	for i := 0; i < nComps; i++ {
		tid, err := d.ReadUint8("type")
		if err != nil {
			return nil, err
		}
		data, err := d.ReadBytes("data")
		if err != nil {
			return nil, err
		}
		f.comps = append(f.comps, componentFrame{tid: TypeID(tid), data: data})
	}
	if err := d.EndArray(); err != nil {
		return nil, err
	}
	if err := d.EndObject(); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *Registry) applyEntityFrame(id EntityID, f *entityFrame, applyParent bool) error {
	r.entityMu.Lock()
	md, ok := r.meta[id]
	if !ok {
		r.entityMu.Unlock()
		return fmt.Errorf("deserialize entity %d: %w", id, ErrInvalidEntity)
	}
	md.UUID = f.uuid
	md.Name = f.name
	md.Active = f.active
	for _, t := range f.tags {
		md.Tags[t] = struct{}{}
	}

	mask := r.masks[id]
	r.poolMu.Lock()
	for _, cf := range f.comps {
		p, ok := r.pools[cf.tid]
		if !ok {
			created, err := r.types.CreatePool(cf.tid)
			if err != nil {
				tag := "????"
				if t, ok := r.types.TagFor(cf.tid); ok {
					tag = t
				}
				r.log.Warn("unknown component type in persisted data, skipping",
					zap.Uint32("entity", uint32(id)),
					zap.Uint8("type", uint8(cf.tid)),
					zap.String("tag", tag))
				continue
			}
			p = created
			r.pools[cf.tid] = p
		}
		sub := persist.NewBinaryReader(cf.data)
		if err := p.DeserializeComponent(id, sub); err != nil {
			r.log.Warn("component deserialization failed, skipping",
				zap.Uint32("entity", uint32(id)),
				zap.Uint8("type", uint8(cf.tid)),
				zap.Error(err))
			continue
		}
		mask.Set(cf.tid)
	}
	r.poolMu.Unlock()
	r.masks[id] = mask
	r.entityMu.Unlock()

	if applyParent && f.parent != 0 {
		parent := EntityID(f.parent)
		if r.IsValid(parent) {
			if err := r.SetParent(id, parent); err != nil {
				r.log.Debug("stored parent not applied", zap.Error(err))
			}
		}
	}
	return nil
}

// SerializeAll writes every live entity as a count-prefixed array of
// length-delimited frames, so one corrupt frame can be skipped on read
// without abandoning the rest of the buffer.
func (r *Registry) SerializeAll(s persist.Serializer) error {
	ids := r.Entities()
	if err := s.BeginArray("entities", len(ids)); err != nil {
		return err
	}
	for _, id := range ids {
		sub := persist.NewBinaryWriter()
		if err := r.SerializeEntity(id, sub); err != nil {
			return fmt.Errorf("serialize entity %d: %w", id, err)
		}
		if err := s.WriteBytes("entity", sub.Bytes()); err != nil {
			return err
		}
	}
	return s.EndArray()
}

// DeserializeAll reads a bulk entity array, creating a fresh entity per
// frame and remapping stored parent references to the new IDs. A frame that
// fails to decode is logged and skipped; it never aborts the pass. Returns
// the created entity IDs.
func (r *Registry) DeserializeAll(d persist.Deserializer) ([]EntityID, error) {
	n, err := d.BeginArray("entities")
	if err != nil {
		return nil, err
	}

	type pendingParent struct {
		child  EntityID
		stored uint32
	}
	// n comes straight off the wire; cap the preallocation so a corrupt
	// count cannot demand gigabytes before the first frame fails to read.
	hint := n
	if hint > preallocLimit {
		hint = preallocLimit
	}
	created := make([]EntityID, 0, hint)
	remap := make(map[uint32]EntityID, hint)
	var parents []pendingParent

	for i := 0; i < n; i++ {
		raw, err := d.ReadBytes("entity")
		if err != nil {
			return created, fmt.Errorf("read entity frame %d: %w", i, err)
		}
		frame, err := readEntityFrame(persist.NewBinaryReader(raw))
		if err != nil {
			r.log.Warn("bad entity frame, skipping",
				zap.Int("index", i), zap.Error(err))
			continue
		}
		id := r.CreateEntity(false)
		if err := r.applyEntityFrame(id, frame, false); err != nil {
			r.log.Warn("entity frame not applied, skipping",
				zap.Int("index", i), zap.Error(err))
			r.DestroyEntity(id)
			continue
		}
		created = append(created, id)
		remap[frame.storedID] = id
		if frame.parent != 0 {
			parents = append(parents, pendingParent{child: id, stored: frame.parent})
		}
	}
	if err := d.EndArray(); err != nil {
		return created, err
	}

	for _, pp := range parents {
		parent, ok := remap[pp.stored]
		if !ok {
			r.log.Warn("stored parent not in loaded set",
				zap.Uint32("child", uint32(pp.child)),
				zap.Uint32("stored_parent", pp.stored))
			continue
		}
		if err := r.SetParent(pp.child, parent); err != nil {
			r.log.Warn("parent link not restored", zap.Error(err))
		}
	}
	return created, nil
}
