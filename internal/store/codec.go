package store

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
)

const (
	fieldSep  = "\t"
	recordSep = "\n"
)

// ErrInvalidField is returned for field values containing a separator
var ErrInvalidField = errors.New("field contains a record separator")

// ErrCorruptNode is returned when an owner node does not decode
var ErrCorruptNode = errors.New("corrupt owner node")

// EncodeRecords serializes records as "connection\ttarget\tfilter" lines.
// Separators are not escaped; values containing them are rejected.
func EncodeRecords(recs []types.ConnectionRecord) ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range recs {
		for _, f := range []string{r.Connection, r.LaunchTarget, r.Filter} {
			if strings.ContainsAny(f, fieldSep+recordSep+"\r") {
				return nil, fmt.Errorf("%w: %q", ErrInvalidField, f)
			}
		}
		if r.Connection == "" {
			return nil, fmt.Errorf("%w: empty connection", ErrInvalidField)
		}
		buf.WriteString(r.Connection)
		buf.WriteString(fieldSep)
		buf.WriteString(r.LaunchTarget)
		buf.WriteString(fieldSep)
		buf.WriteString(r.Filter)
		buf.WriteString(recordSep)
	}
	return buf.Bytes(), nil
}

// DecodeRecords parses the lines written by EncodeRecords for owner
func DecodeRecords(owner types.OwnerID, data []byte) ([]types.ConnectionRecord, error) {
	var recs []types.ConnectionRecord
	for i, line := range strings.Split(string(data), recordSep) {
		if line == "" {
			continue
		}
		fields := strings.Split(line, fieldSep)
		if len(fields) != 3 || fields[0] == "" {
			return nil, fmt.Errorf("%w: owner %s line %d: malformed record %q", ErrCorruptNode, owner, i+1, line)
		}
		recs = append(recs, types.ConnectionRecord{
			Owner:        owner,
			Connection:   fields[0],
			LaunchTarget: fields[1],
			Filter:       fields[2],
		})
	}
	return recs, nil
}
