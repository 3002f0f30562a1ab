package engine

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"vantage/internal/errors"
	"vantage/pkg/types"
)

// The parent and its workers speak a framed protocol over stdin/stdout:
// a 4-byte big-endian payload length, a 1-byte schema tag, then a CBOR
// payload. The tag lets either side reject a frame it does not
// understand instead of decoding garbage.
const (
	frameJob    = 0x01
	frameResult = 0x02

	// maxFrameSize rejects frames that can only come from a corrupted
	// stream; tool output is clipped well below this.
	maxFrameSize = 64 << 20
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(err)
	}
}

func writeFrame(w io.Writer, tag byte, v any) error {
	payload, err := encMode.Marshal(v)
	if err != nil {
		return errors.NewWorkerError("encoding frame", errors.WorkerProtocol, err)
	}
	header := make([]byte, 5)
	binary.BigEndian.PutUint32(header, uint32(len(payload)))
	header[4] = tag
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

func readFrame(r io.Reader, wantTag byte, v any) error {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return err
	}
	size := binary.BigEndian.Uint32(header)
	if size > maxFrameSize {
		return errors.NewWorkerError(fmt.Sprintf("frame of %d bytes exceeds limit", size), errors.WorkerProtocol, nil)
	}
	if header[4] != wantTag {
		return errors.NewWorkerError(fmt.Sprintf("unexpected frame tag 0x%02x", header[4]), errors.WorkerProtocol, nil)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return err
	}
	if err := decMode.Unmarshal(payload, v); err != nil {
		return errors.NewWorkerError("decoding frame", errors.WorkerProtocol, err)
	}
	return nil
}

// WriteJob sends one job frame to a worker.
func WriteJob(w io.Writer, job types.JobSpec) error {
	return writeFrame(w, frameJob, job)
}

// ReadJob receives the next job frame on the worker side.
func ReadJob(r io.Reader) (types.JobSpec, error) {
	var job types.JobSpec
	err := readFrame(r, frameJob, &job)
	return job, err
}

// WriteResult sends one result frame from a worker.
func WriteResult(w io.Writer, res types.Result) error {
	return writeFrame(w, frameResult, res)
}

// ReadResult receives the next result frame on the parent side.
func ReadResult(r io.Reader) (types.Result, error) {
	var res types.Result
	err := readFrame(r, frameResult, &res)
	return res, err
}
