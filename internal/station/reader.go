package station

import (
	"context"
	"errors"
	"fmt"

	"github.com/yndnr/tagurl-go/internal/core/domain"
)

// Reader yields the IDm of the card currently presented.
type Reader interface {
	ReadIDm(ctx context.Context) (domain.IDm, error)
}

// Transmitter sends one APDU and returns the raw response including the
// status word.
type Transmitter interface {
	Transmit(apdu []byte) ([]byte, error)
}

// getUIDCommand is the PC/SC pseudo-APDU GET DATA (UID).
var getUIDCommand = []byte{0xFF, 0xCA, 0x00, 0x00, 0x00}

// ErrShortResponse is returned for responses without a status word.
var ErrShortResponse = errors.New("station: short APDU response")

// StatusError is a non-9000 status word.
type StatusError struct {
	SW1, SW2 byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("station: APDU failed: SW=%02X%02X", e.SW1, e.SW2)
}

func transmit(t Transmitter, apdu []byte) ([]byte, error) {
	resp, err := t.Transmit(apdu)
	if err != nil {
		return nil, err
	}
	if len(resp) < 2 {
		return nil, ErrShortResponse
	}
	sw1, sw2 := resp[len(resp)-2], resp[len(resp)-1]
	if sw1 != 0x90 || sw2 != 0x00 {
		return nil, &StatusError{SW1: sw1, SW2: sw2}
	}
	return resp[:len(resp)-2], nil
}

// ReadIDm asks the card for its UID and fits it to 8 bytes: shorter UIDs
// (4 or 7 byte ISO 14443-A) are zero-padded on the right, longer ones are
// truncated.
func ReadIDm(t Transmitter) (domain.IDm, error) {
	var idm domain.IDm
	uid, err := transmit(t, getUIDCommand)
	if err != nil {
		return idm, err
	}
	if len(uid) == 0 {
		return idm, fmt.Errorf("station: empty UID")
	}
	copy(idm[:], uid)
	return idm, nil
}

// NoReader is a Reader for stations without a card reader. It reports the
// all-zero IDm, which is what tags write when no IDm is available.
type NoReader struct{}

// ReadIDm returns the zero IDm.
func (NoReader) ReadIDm(context.Context) (domain.IDm, error) {
	return domain.IDm{}, nil
}
