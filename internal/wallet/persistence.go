package wallet

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// walletFileMagic identifies an encrypted wallet file belonging to this
// engine; walletFileVersion lets the format evolve without breaking
// old files (spec.md §4.J).
var walletFileMagic = []byte("MNRS")

const walletFileVersion uint32 = 1

// walletFilePayload is the plaintext structure encrypted inside a
// wallet file: everything needed to reconstruct a WalletState without
// re-scanning from genesis.
type walletFilePayload struct {
	Network              Network
	SpendSecret          *[32]byte // nil for a view-only wallet
	ViewSecret           [32]byte
	SpendPublic          [32]byte
	RefreshFromHeight    uint64
	CurrentScannedHeight uint64
	RegisteredAccounts   uint32 // subaddress accounts registered, 0..N
	Outputs              []Output
	Spent                [][32]byte
	Frozen               [][32]byte
}

// SaveWallet encrypts and atomically writes a wallet's persisted state
// to path. The write goes through a temp file plus fsync-then-rename
// so a crash mid-write cannot leave a corrupted file in path's place
// (spec.md §4.J "Save").
func SaveWallet(path string, network Network, kp *KeyPair, ledger *Ledger, refreshFromHeight uint64, password string) error {
	payload := snapshotPayload(network, kp, ledger, refreshFromHeight)
	plaintext := encodePayload(payload)

	salt, err := generateSalt()
	if err != nil {
		return err
	}
	var nonce [aesNonceSize]byte
	if err := randomNonce(nonce[:]); err != nil {
		return err
	}
	ciphertext, err := encryptAESGCM(plaintext, password, salt, nonce)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	out.Write(walletFileMagic)
	out.Write(leUint32(walletFileVersion))
	out.Write(salt[:])
	out.Write(nonce[:])
	out.Write(ciphertext)

	return atomicWriteFile(path, out.Bytes())
}

// LoadWallet reverses SaveWallet: validates the magic and version,
// decrypts with password, and reconstructs the KeyPair and Ledger
// (spec.md §4.J "Load"). An incorrect password surfaces as
// ErrInvalidPassword; any other structural problem as
// *CorruptedFileError or *UnsupportedVersionError.
func LoadWallet(path string, password string) (*KeyPair, *Ledger, Network, uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, 0, 0, err
	}

	headerLen := len(walletFileMagic) + 4 + aesSaltSize + aesNonceSize
	if len(data) < headerLen {
		return nil, nil, 0, 0, &CorruptedFileError{Reason: "wallet file too short"}
	}
	if !bytes.Equal(data[:len(walletFileMagic)], walletFileMagic) {
		return nil, nil, 0, 0, &CorruptedFileError{Reason: "bad wallet file magic"}
	}
	offset := len(walletFileMagic)

	version := binary.LittleEndian.Uint32(data[offset : offset+4])
	offset += 4
	if version != walletFileVersion {
		return nil, nil, 0, 0, &UnsupportedVersionError{Version: version}
	}

	var salt [aesSaltSize]byte
	copy(salt[:], data[offset:offset+aesSaltSize])
	offset += aesSaltSize

	var nonce [aesNonceSize]byte
	copy(nonce[:], data[offset:offset+aesNonceSize])
	offset += aesNonceSize

	plaintext, err := decryptAESGCM(data[offset:], password, salt, nonce)
	if err != nil {
		return nil, nil, 0, 0, err
	}

	payload, err := decodePayload(plaintext)
	if err != nil {
		return nil, nil, 0, 0, err
	}

	viewSecret, err := ScalarFromCanonicalBytes(payload.ViewSecret)
	if err != nil {
		return nil, nil, 0, 0, &CorruptedFileError{Reason: "invalid view secret"}
	}
	spendPublic, err := PointFromBytes(payload.SpendPublic)
	if err != nil {
		return nil, nil, 0, 0, &CorruptedFileError{Reason: "invalid spend public key"}
	}

	var kp *KeyPair
	if payload.SpendSecret != nil {
		spendSecret, err := ScalarFromCanonicalBytes(*payload.SpendSecret)
		if err != nil {
			return nil, nil, 0, 0, &CorruptedFileError{Reason: "invalid spend secret"}
		}
		kp = &KeyPair{
			SpendSecret: spendSecret,
			SpendPublic: spendPublic,
			ViewSecret:  viewSecret,
			ViewPublic:  BasepointMul(viewSecret),
		}
	} else {
		kp = NewViewOnlyKeyPair(spendPublic, viewSecret)
	}

	ledger := NewLedger()
	ledger.SetCurrentScannedHeight(payload.CurrentScannedHeight)
	for i := range payload.Outputs {
		o := payload.Outputs[i]
		if err := ledger.Insert(&o); err != nil {
			return nil, nil, 0, 0, fmt.Errorf("%w: restoring output: %v", ErrInvalidData, err)
		}
	}
	for _, ki := range payload.Spent {
		ledger.MarkSpent(ki)
	}
	for _, ki := range payload.Frozen {
		ledger.Freeze(ki)
	}

	return kp, ledger, payload.Network, payload.RefreshFromHeight, nil
}

func snapshotPayload(network Network, kp *KeyPair, ledger *Ledger, refreshFromHeight uint64) walletFilePayload {
	ledger.mu.RLock()
	defer ledger.mu.RUnlock()

	payload := walletFilePayload{
		Network:              network,
		ViewSecret:           [32]byte(kp.ViewSecret.Bytes()),
		SpendPublic:          PointBytes(kp.SpendPublic),
		RefreshFromHeight:    refreshFromHeight,
		CurrentScannedHeight: ledger.currentScannedHeight,
	}
	if kp.SpendSecret != nil {
		b := [32]byte(kp.SpendSecret.Bytes())
		payload.SpendSecret = &b
	}
	for _, o := range ledger.outputs {
		payload.Outputs = append(payload.Outputs, *o)
	}
	for ki, spent := range ledger.spent {
		if spent {
			payload.Spent = append(payload.Spent, ki)
		}
	}
	for ki, frozen := range ledger.frozen {
		if frozen {
			payload.Frozen = append(payload.Frozen, ki)
		}
	}
	return payload
}

// encodePayload serializes a walletFilePayload into the plaintext
// layout that gets encrypted. Not self-describing beyond length
// prefixes; the format is private to this file.
func encodePayload(p walletFilePayload) []byte {
	var buf bytes.Buffer

	buf.WriteByte(byte(p.Network))
	if p.SpendSecret != nil {
		buf.WriteByte(1)
		buf.Write(p.SpendSecret[:])
	} else {
		buf.WriteByte(0)
	}
	buf.Write(p.ViewSecret[:])
	buf.Write(p.SpendPublic[:])
	buf.Write(leUint64(p.RefreshFromHeight))
	buf.Write(leUint64(p.CurrentScannedHeight))

	buf.Write(leUint32(uint32(len(p.Outputs))))
	for _, o := range p.Outputs {
		encodeOutput(&buf, &o)
	}

	buf.Write(leUint32(uint32(len(p.Spent))))
	for _, ki := range p.Spent {
		buf.Write(ki[:])
	}

	buf.Write(leUint32(uint32(len(p.Frozen))))
	for _, ki := range p.Frozen {
		buf.Write(ki[:])
	}

	return buf.Bytes()
}

func encodeOutput(buf *bytes.Buffer, o *Output) {
	buf.Write(o.TxHash[:])
	buf.Write(leUint64(o.OutputIndex))
	buf.Write(leUint64(o.Amount))
	buf.Write(o.KeyImage[:])
	buf.Write(leUint32(o.Subaddress.Account))
	buf.Write(leUint32(o.Subaddress.Address))
	buf.Write(leUint64(o.Height))
	koBytes := [32]byte(o.KeyOffset.Bytes())
	buf.Write(koBytes[:])
	opk := PointBytes(o.OutputPublicKey)
	buf.Write(opk[:])
	maskBytes := [32]byte(o.Mask.Bytes())
	buf.Write(maskBytes[:])
	if o.PaymentID != nil {
		buf.WriteByte(1)
		buf.Write(o.PaymentID[:])
	} else {
		buf.WriteByte(0)
	}
	flags := byte(0)
	if o.Unlocked {
		flags |= 1
	}
	if o.Spent {
		flags |= 2
	}
	if o.Frozen {
		flags |= 4
	}
	buf.WriteByte(flags)
}

func decodePayload(data []byte) (*walletFilePayload, error) {
	r := bytes.NewReader(data)
	p := &walletFilePayload{}

	readU8 := func() (byte, error) {
		b, err := r.ReadByte()
		return b, err
	}
	readExact := func(n int) ([]byte, error) {
		buf := make([]byte, n)
		if _, err := readFull(r, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}
	readU32 := func() (uint32, error) {
		b, err := readExact(4)
		if err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint32(b), nil
	}
	readU64 := func() (uint64, error) {
		b, err := readExact(8)
		if err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(b), nil
	}

	networkByte, err := readU8()
	if err != nil {
		return nil, &CorruptedFileError{Reason: "truncated payload: network"}
	}
	p.Network = Network(networkByte)

	hasSpend, err := readU8()
	if err != nil {
		return nil, &CorruptedFileError{Reason: "truncated payload: spend secret flag"}
	}
	if hasSpend == 1 {
		b, err := readExact(32)
		if err != nil {
			return nil, &CorruptedFileError{Reason: "truncated payload: spend secret"}
		}
		var arr [32]byte
		copy(arr[:], b)
		p.SpendSecret = &arr
	}

	if b, err := readExact(32); err != nil {
		return nil, &CorruptedFileError{Reason: "truncated payload: view secret"}
	} else {
		copy(p.ViewSecret[:], b)
	}
	if b, err := readExact(32); err != nil {
		return nil, &CorruptedFileError{Reason: "truncated payload: spend public"}
	} else {
		copy(p.SpendPublic[:], b)
	}

	if p.RefreshFromHeight, err = readU64(); err != nil {
		return nil, &CorruptedFileError{Reason: "truncated payload: refresh height"}
	}
	if p.CurrentScannedHeight, err = readU64(); err != nil {
		return nil, &CorruptedFileError{Reason: "truncated payload: scanned height"}
	}

	outputCount, err := readU32()
	if err != nil {
		return nil, &CorruptedFileError{Reason: "truncated payload: output count"}
	}
	for i := uint32(0); i < outputCount; i++ {
		o, err := decodeOutput(readU8, readExact, readU32, readU64)
		if err != nil {
			return nil, err
		}
		p.Outputs = append(p.Outputs, *o)
	}

	spentCount, err := readU32()
	if err != nil {
		return nil, &CorruptedFileError{Reason: "truncated payload: spent count"}
	}
	for i := uint32(0); i < spentCount; i++ {
		b, err := readExact(32)
		if err != nil {
			return nil, &CorruptedFileError{Reason: "truncated payload: spent entry"}
		}
		var ki [32]byte
		copy(ki[:], b)
		p.Spent = append(p.Spent, ki)
	}

	frozenCount, err := readU32()
	if err != nil {
		return nil, &CorruptedFileError{Reason: "truncated payload: frozen count"}
	}
	for i := uint32(0); i < frozenCount; i++ {
		b, err := readExact(32)
		if err != nil {
			return nil, &CorruptedFileError{Reason: "truncated payload: frozen entry"}
		}
		var ki [32]byte
		copy(ki[:], b)
		p.Frozen = append(p.Frozen, ki)
	}

	return p, nil
}

func decodeOutput(
	readU8 func() (byte, error),
	readExact func(int) ([]byte, error),
	readU32 func() (uint32, error),
	readU64 func() (uint64, error),
) (*Output, error) {
	o := &Output{}

	b, err := readExact(32)
	if err != nil {
		return nil, &CorruptedFileError{Reason: "truncated output: tx hash"}
	}
	copy(o.TxHash[:], b)

	if o.OutputIndex, err = readU64(); err != nil {
		return nil, &CorruptedFileError{Reason: "truncated output: index"}
	}
	if o.Amount, err = readU64(); err != nil {
		return nil, &CorruptedFileError{Reason: "truncated output: amount"}
	}
	if b, err = readExact(32); err != nil {
		return nil, &CorruptedFileError{Reason: "truncated output: key image"}
	}
	copy(o.KeyImage[:], b)

	if o.Subaddress.Account, err = readU32(); err != nil {
		return nil, &CorruptedFileError{Reason: "truncated output: subaddress account"}
	}
	if o.Subaddress.Address, err = readU32(); err != nil {
		return nil, &CorruptedFileError{Reason: "truncated output: subaddress address"}
	}
	if o.Height, err = readU64(); err != nil {
		return nil, &CorruptedFileError{Reason: "truncated output: height"}
	}

	if b, err = readExact(32); err != nil {
		return nil, &CorruptedFileError{Reason: "truncated output: key offset"}
	}
	var koBytes [32]byte
	copy(koBytes[:], b)
	keyOffset, err := ScalarFromCanonicalBytes(koBytes)
	if err != nil {
		return nil, &CorruptedFileError{Reason: "invalid output key offset"}
	}
	o.KeyOffset = keyOffset

	if b, err = readExact(32); err != nil {
		return nil, &CorruptedFileError{Reason: "truncated output: public key"}
	}
	var pkBytes [32]byte
	copy(pkBytes[:], b)
	pk, err := PointFromBytes(pkBytes)
	if err != nil {
		return nil, &CorruptedFileError{Reason: "invalid output public key"}
	}
	o.OutputPublicKey = pk

	if b, err = readExact(32); err != nil {
		return nil, &CorruptedFileError{Reason: "truncated output: commitment mask"}
	}
	var maskBytes [32]byte
	copy(maskBytes[:], b)
	mask, err := ScalarFromCanonicalBytes(maskBytes)
	if err != nil {
		return nil, &CorruptedFileError{Reason: "invalid output commitment mask"}
	}
	o.Mask = mask

	hasPaymentID, err := readU8()
	if err != nil {
		return nil, &CorruptedFileError{Reason: "truncated output: payment id flag"}
	}
	if hasPaymentID == 1 {
		b, err := readExact(8)
		if err != nil {
			return nil, &CorruptedFileError{Reason: "truncated output: payment id"}
		}
		var pid [8]byte
		copy(pid[:], b)
		o.PaymentID = &pid
	}

	flags, err := readU8()
	if err != nil {
		return nil, &CorruptedFileError{Reason: "truncated output: flags"}
	}
	o.Unlocked = flags&1 != 0
	o.Spent = flags&2 != 0
	o.Frozen = flags&4 != 0

	return o, nil
}

// readFull reads exactly len(buf) bytes or returns an error, since
// bytes.Reader.Read can return short reads near EOF.
func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n, err := r.Read(buf)
	if err != nil {
		return n, err
	}
	if n < len(buf) {
		return n, fmt.Errorf("short read: got %d want %d", n, len(buf))
	}
	return n, nil
}

func randomNonce(b []byte) error {
	_, err := rand.Read(b)
	return err
}

// atomicWriteFile writes data to a temp file in the same directory as
// path, fsyncs it, then renames it over path so a crash mid-write
// cannot corrupt an existing wallet file.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("monlite: creating temp wallet file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("monlite: writing temp wallet file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("monlite: fsyncing temp wallet file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("monlite: closing temp wallet file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("monlite: renaming temp wallet file into place: %w", err)
	}
	return nil
}
