package protocol

const (
	EntityRecordSize     = 13
	ProjectileRecordSize = 10
	PlayerRecordSize     = 3
)

const (
	EntityFlagAlive   uint8 = 1 << 0
	EntityFlagDamaged uint8 = 1 << 1
)

// EntityRecord GameStep 中的实体快照
// id:i32 symbol:u8 x:i16 y:i16 health:u8 energy:u8 facing:u8 flags:u8
type EntityRecord struct {
	ID     int32
	Symbol byte
	X, Y   int16
	Health uint8
	Energy uint8
	Facing uint8
	Flags  uint8
}

func (e EntityRecord) Alive() bool { return e.Flags&EntityFlagAlive != 0 }
func (e EntityRecord) Damaged() bool { return e.Flags&EntityFlagDamaged != 0 }

func (e EntityRecord) encode(w *binaryWriter) {
	w.writeInt32(e.ID)
	w.writeUint8(e.Symbol)
	w.writeInt16(e.X)
	w.writeInt16(e.Y)
	w.writeUint8(e.Health)
	w.writeUint8(e.Energy)
	w.writeUint8(e.Facing)
	w.writeUint8(e.Flags)
}

func decodeEntityRecord(r *binaryReader) (EntityRecord, error) {
	var e EntityRecord
	var err error
	if e.ID, err = r.readInt32(); err != nil {
		return e, err
	}
	if e.Symbol, err = r.readUint8(); err != nil {
		return e, err
	}
	if e.X, err = r.readInt16(); err != nil {
		return e, err
	}
	if e.Y, err = r.readInt16(); err != nil {
		return e, err
	}
	if e.Health, err = r.readUint8(); err != nil {
		return e, err
	}
	if e.Energy, err = r.readUint8(); err != nil {
		return e, err
	}
	if e.Facing, err = r.readUint8(); err != nil {
		return e, err
	}
	e.Flags, err = r.readUint8()
	return e, err
}

// ProjectileRecord id:i32 x:i16 y:i16 dir:u8 kind:u8
type ProjectileRecord struct {
	ID   int32
	X, Y int16
	Dir  uint8
	Kind uint8
}

func (p ProjectileRecord) encode(w *binaryWriter) {
	w.writeInt32(p.ID)
	w.writeInt16(p.X)
	w.writeInt16(p.Y)
	w.writeUint8(p.Dir)
	w.writeUint8(p.Kind)
}

func decodeProjectileRecord(r *binaryReader) (ProjectileRecord, error) {
	var p ProjectileRecord
	var err error
	if p.ID, err = r.readInt32(); err != nil {
		return p, err
	}
	if p.X, err = r.readInt16(); err != nil {
		return p, err
	}
	if p.Y, err = r.readInt16(); err != nil {
		return p, err
	}
	if p.Dir, err = r.readUint8(); err != nil {
		return p, err
	}
	p.Kind, err = r.readUint8()
	return p, err
}

// PlayerRecord symbol:u8 points:u16
type PlayerRecord struct {
	Symbol byte
	Points uint16
}

func (p PlayerRecord) encode(w *binaryWriter) {
	w.writeUint8(p.Symbol)
	w.writeUint16(p.Points)
}

func decodePlayerRecord(r *binaryReader) (PlayerRecord, error) {
	var p PlayerRecord
	var err error
	if p.Symbol, err = r.readUint8(); err != nil {
		return p, err
	}
	p.Points, err = r.readUint16()
	return p, err
}
