package packet

// Factory builds every packet variant of the protocol. It holds no state other than the hop limit.
// Each product has Sender == PreviousHop == the address handed to the factory.
type Factory struct {
	maxHops uint8
}

func NewFactory(maxHops uint8) *Factory {
	return &Factory{maxHops: maxHops}
}

func (f *Factory) MaxHopCount() uint8 {
	return f.maxHops
}

func (f *Factory) build(t Type, source, destination, sender Address, seq uint32, payload []byte) *Packet {
	return &Packet{
		Type:           t,
		SequenceNumber: seq,
		TTL:            f.maxHops,
		Source:         source,
		Destination:    destination,
		Sender:         sender,
		PreviousHop:    sender,
		Payload:        payload,
	}
}

func (f *Factory) MakeDataPacket(source, destination Address, seq uint32, payload []byte) *Packet {
	return f.build(DATA, source, destination, source, seq, payload)
}

func (f *Factory) MakeFANT(source, destination Address, seq uint32) *Packet {
	return f.build(FANT, source, destination, source, seq, nil)
}

// MakeBANT mirrors a FANT end to end, the BANT starts at the node the FANT was looking for.
func (f *Factory) MakeBANT(fant *Packet, seq uint32) *Packet {
	return f.build(BANT, fant.Destination, fant.Source, fant.Destination, seq, nil)
}

func (f *Factory) MakeClone(p *Packet) *Packet {
	return p.Clone()
}

func (f *Factory) MakeDuplicateWarningPacket(original *Packet, warner Address, seq uint32) *Packet {
	return f.build(DUPLICATE_ERROR, warner, original.Source, warner, seq, nil)
}

// MakeAcknowledgmentPacket keeps the key of the acknowledged packet
func (f *Factory) MakeAcknowledgmentPacket(original *Packet, acker Address) *Packet {
	return f.build(ACK, original.Source, original.Destination, acker, original.SequenceNumber, nil)
}

func (f *Factory) MakeRouteFailurePacket(source, destination Address, seq uint32) *Packet {
	return f.build(ROUTE_FAILURE, source, destination, source, seq, nil)
}

// MakeEnergyDisseminationPacket leaves the destination empty, the interface broadcasts it.
func (f *Factory) MakeEnergyDisseminationPacket(source Address, seq uint32, level uint8) *Packet {
	return f.build(ENERGY_INFO, source, "", source, seq, []byte{level})
}

func (f *Factory) MakeHelloPacket(source, destination Address, seq uint32) *Packet {
	return f.build(HELLO, source, destination, source, seq, nil)
}

func (f *Factory) MakePANT(source Address, seq uint32) *Packet {
	return f.build(PANT, source, "", source, seq, nil)
}
