package wallet

import "fmt"

// Network fixes address version bytes and (conceptually) genesis.
type Network int

const (
	Mainnet Network = iota
	Testnet
	Stagenet
)

func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Stagenet:
		return "stagenet"
	default:
		return "unknown"
	}
}

// AddressType distinguishes the three address encodings this chain
// family supports.
type AddressType int

const (
	AddressLegacy AddressType = iota
	AddressSubaddress
	AddressIntegrated
)

// networkVersionBytes maps (network, type) to the leading version byte
// used by the base58 address codec. Constants per
// other_examples/e95a9dd9_tolerant-Seoul-crypto-accounts__pkgs-address-monero.go.go.
var networkVersionBytes = map[Network]map[AddressType]byte{
	Mainnet: {
		AddressLegacy:     0x12,
		AddressIntegrated: 0x13,
		AddressSubaddress: 0x2A,
	},
	Testnet: {
		AddressLegacy:     0x35,
		AddressIntegrated: 0x36,
		AddressSubaddress: 0x3F,
	},
	Stagenet: {
		AddressLegacy:     0x18,
		AddressIntegrated: 0x19,
		AddressSubaddress: 0x24,
	},
}

func versionByte(network Network, typ AddressType) (byte, error) {
	byNetwork, ok := networkVersionBytes[network]
	if !ok {
		return 0, ErrInvalidNetwork
	}
	v, ok := byNetwork[typ]
	if !ok {
		return 0, ErrInvalidNetwork
	}
	return v, nil
}

func versionByteToType(network Network, v byte) (AddressType, bool) {
	byNetwork, ok := networkVersionBytes[network]
	if !ok {
		return 0, false
	}
	for typ, b := range byNetwork {
		if b == v {
			return typ, true
		}
	}
	return 0, false
}

// MoneroAddress is a decoded (network, type, spend/view key, optional
// payment id) address, per spec.md §3.
type MoneroAddress struct {
	Network   Network
	Type      AddressType
	Spend     *Point
	View      *Point
	PaymentID *[8]byte
}

const addressChecksumSize = 4

// Encode renders the address as base58 with a network version byte and
// a 4-byte Keccak-256 checksum, per spec.md §4.A.
func (a *MoneroAddress) Encode() (string, error) {
	v, err := versionByte(a.Network, a.Type)
	if err != nil {
		return "", err
	}
	payload := []byte{v}
	payload = append(payload, a.Spend.Bytes()...)
	payload = append(payload, a.View.Bytes()...)
	if a.Type == AddressIntegrated {
		if a.PaymentID == nil {
			return "", fmt.Errorf("%w: integrated address requires a payment id", ErrInvalidAddress)
		}
		payload = append(payload, a.PaymentID[:]...)
	}
	checksum := Keccak256(payload)
	payload = append(payload, checksum[:addressChecksumSize]...)
	return Base58Encode(payload), nil
}

// DecodeAddress reverses Encode, validating the checksum and network
// version byte.
func DecodeAddress(s string) (*MoneroAddress, error) {
	raw, err := Base58Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) < 1+32+32+addressChecksumSize {
		return nil, fmt.Errorf("%w: address too short", ErrInvalidAddress)
	}

	body := raw[:len(raw)-addressChecksumSize]
	wantChecksum := raw[len(raw)-addressChecksumSize:]
	gotChecksum := Keccak256(body)
	for i := 0; i < addressChecksumSize; i++ {
		if gotChecksum[i] != wantChecksum[i] {
			return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
		}
	}

	versionB := body[0]
	rest := body[1:]

	var network Network
	var typ AddressType
	found := false
	for _, n := range []Network{Mainnet, Testnet, Stagenet} {
		if t, ok := versionByteToType(n, versionB); ok {
			network, typ, found = n, t, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: unknown version byte 0x%x", ErrInvalidAddress, versionB)
	}

	wantLen := 64
	if typ == AddressIntegrated {
		wantLen = 72
	}
	if len(rest) != wantLen {
		return nil, fmt.Errorf("%w: unexpected payload length", ErrInvalidAddress)
	}

	var spendBytes, viewBytes [32]byte
	copy(spendBytes[:], rest[:32])
	copy(viewBytes[:], rest[32:64])
	spend, err := PointFromBytes(spendBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid spend key", ErrInvalidAddress)
	}
	view, err := PointFromBytes(viewBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid view key", ErrInvalidAddress)
	}

	addr := &MoneroAddress{Network: network, Type: typ, Spend: spend, View: view}
	if typ == AddressIntegrated {
		var pid [8]byte
		copy(pid[:], rest[64:72])
		addr.PaymentID = &pid
	}
	return addr, nil
}
