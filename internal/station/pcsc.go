package station

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ebfe/scard"

	"github.com/yndnr/tagurl-go/internal/core/domain"
)

// pollInterval bounds each wait for a card so that cancellation is noticed.
const pollInterval = 500 * time.Millisecond

// PCSCReader reads IDms from a PC/SC reader.
type PCSCReader struct {
	ctx    *scard.Context
	reader string
}

// ListReaders returns the names of the attached PC/SC readers.
func ListReaders() ([]string, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establish PC/SC context: %w", err)
	}
	defer ctx.Release()
	return ctx.ListReaders()
}

// OpenPCSC opens the reader at index (0-based) in the system's reader list.
func OpenPCSC(index int) (*PCSCReader, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establish PC/SC context: %w", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil || len(readers) == 0 {
		ctx.Release()
		return nil, fmt.Errorf("no readers found: %v", err)
	}
	if index < 0 || index >= len(readers) {
		ctx.Release()
		return nil, fmt.Errorf("reader index out of range (0..%d)", len(readers)-1)
	}

	return &PCSCReader{ctx: ctx, reader: readers[index]}, nil
}

// Name returns the reader name.
func (r *PCSCReader) Name() string {
	return r.reader
}

// ReadIDm waits for a card and reads its UID.
func (r *PCSCReader) ReadIDm(ctx context.Context) (domain.IDm, error) {
	if err := r.waitForCard(ctx); err != nil {
		return domain.IDm{}, err
	}

	card, err := r.ctx.Connect(r.reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		return domain.IDm{}, fmt.Errorf("connect %s: %w", r.reader, err)
	}
	defer card.Disconnect(scard.LeaveCard)

	return ReadIDm(card)
}

func (r *PCSCReader) waitForCard(ctx context.Context) error {
	rs := []scard.ReaderState{{Reader: r.reader, CurrentState: scard.StateUnaware}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := r.ctx.GetStatusChange(rs, pollInterval)
		if err != nil && !errors.Is(err, scard.ErrTimeout) {
			return fmt.Errorf("reader status: %w", err)
		}
		st := rs[0].EventState
		rs[0].CurrentState = st
		if st&scard.StatePresent != 0 {
			return nil
		}
	}
}

// Close releases the PC/SC context.
func (r *PCSCReader) Close() error {
	return r.ctx.Release()
}
