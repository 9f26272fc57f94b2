package protocol

import "fmt"

// DecodeClientMessage 解析一帧客户端消息（含头）
func DecodeClientMessage(frame []byte) (Message, error) {
	h, payload, err := splitFrame(frame)
	if err != nil {
		return nil, err
	}
	r := &binaryReader{data: payload}
	switch h.Type {
	case MsgVersion:
		v, err := r.readShortString()
		return VersionMsg{Version: v}, err
	case MsgSubscribeInfo:
		return SubscribeInfoMsg{}, nil
	case MsgLogin:
		s, err := r.readUint8()
		return LoginMsg{Symbol: s}, err
	case MsgLogout:
		return LogoutMsg{}, nil
	case MsgConnectUDP:
		t, err := r.readInt32()
		return ConnectUDPMsg{Token: t}, err
	case MsgTrustUDP:
		return TrustUDPMsg{}, nil
	case MsgMovePlayer:
		d, err := r.readUint8()
		return MovePlayerMsg{Dir: d}, err
	case MsgCastSkill:
		var m CastSkillMsg
		if m.Dir, err = r.readUint8(); err != nil {
			return nil, err
		}
		m.Attack, err = r.readUint8()
		return m, err
	default:
		return nil, fmt.Errorf("%w: client type %d", ErrUnknownMessage, h.Type)
	}
}

// DecodeServerMessage 解析一帧服务端消息（含头）
func DecodeServerMessage(frame []byte) (Message, error) {
	h, payload, err := splitFrame(frame)
	if err != nil {
		return nil, err
	}
	r := &binaryReader{data: payload}
	switch h.Type {
	case MsgVersionResponse:
		var m VersionResponseMsg
		if m.Version, err = r.readShortString(); err != nil {
			return nil, err
		}
		m.Compatible, err = r.readBool()
		return m, err
	case MsgStaticInfo:
		var m StaticInfoMsg
		for _, f := range []*uint16{&m.UDPPort, &m.MapSize, &m.WinnerPoints, &m.MaxPlayers} {
			if *f, err = r.readUint16(); err != nil {
				return nil, err
			}
		}
		return m, nil
	case MsgDynamicInfo:
		n, err := r.readUint8()
		if err != nil {
			return nil, err
		}
		var m DynamicInfoMsg
		if n > 0 {
			if m.Symbols, err = r.readBytes(int(n)); err != nil {
				return nil, err
			}
		}
		return m, nil
	case MsgLoginStatus:
		var m LoginStatusMsg
		if m.Symbol, err = r.readUint8(); err != nil {
			return nil, err
		}
		status, err := r.readUint8()
		if err != nil {
			return nil, err
		}
		m.Status = LoginCode(status)
		m.Token, err = r.readInt32()
		return m, err
	case MsgUDPConnected:
		return UDPConnectedMsg{}, nil
	case MsgStartGame:
		p, err := r.readUint16()
		return StartGameMsg{WinnerPoints: p}, err
	case MsgFinishGame:
		s, err := r.readUint8()
		return FinishGameMsg{Winner: s}, err
	case MsgWaitArena:
		s, err := r.readUint16()
		return WaitArenaMsg{Seconds: s}, err
	case MsgStartArena:
		return decodeStartArena(r)
	case MsgGameStep:
		return decodeGameStep(r)
	case MsgGameEvent:
		var m GameEventMsg
		if m.Symbol, err = r.readUint8(); err != nil {
			return nil, err
		}
		m.Points, err = r.readUint16()
		return m, err
	default:
		return nil, fmt.Errorf("%w: server type %d", ErrUnknownMessage, h.Type)
	}
}

func splitFrame(frame []byte) (Header, []byte, error) {
	h, err := DecodeHeader(frame)
	if err != nil {
		return h, nil, err
	}
	if len(frame) < h.FrameSize() {
		return h, nil, ErrShortBuffer
	}
	return h, frame[HeaderSize:h.FrameSize()], nil
}

func decodeStartArena(r *binaryReader) (Message, error) {
	var m StartArenaMsg
	var err error
	if m.Round, err = r.readUint16(); err != nil {
		return nil, err
	}
	count, err := r.readUint8()
	if err != nil {
		return nil, err
	}
	if m.MapSize, err = r.readUint16(); err != nil {
		return nil, err
	}
	if count > 0 {
		m.EntityIDs = make([]int32, count)
		for i := range m.EntityIDs {
			if m.EntityIDs[i], err = r.readInt32(); err != nil {
				return nil, err
			}
		}
	}
	if cells := int(m.MapSize) * int(m.MapSize); cells > 0 {
		if m.Terrain, err = r.readBytes(cells); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func decodeGameStep(r *binaryReader) (Message, error) {
	var counts [3]uint8
	for i := range counts {
		c, err := r.readUint8()
		if err != nil {
			return nil, err
		}
		counts[i] = c
	}
	var m GameStepMsg
	if counts[0] > 0 {
		m.Entities = make([]EntityRecord, counts[0])
		for i := range m.Entities {
			e, err := decodeEntityRecord(r)
			if err != nil {
				return nil, err
			}
			m.Entities[i] = e
		}
	}
	if counts[1] > 0 {
		m.Projectiles = make([]ProjectileRecord, counts[1])
		for i := range m.Projectiles {
			p, err := decodeProjectileRecord(r)
			if err != nil {
				return nil, err
			}
			m.Projectiles[i] = p
		}
	}
	if counts[2] > 0 {
		m.Players = make([]PlayerRecord, counts[2])
		for i := range m.Players {
			p, err := decodePlayerRecord(r)
			if err != nil {
				return nil, err
			}
			m.Players[i] = p
		}
	}
	return m, nil
}
