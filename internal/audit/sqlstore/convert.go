package sqlstore

import (
	"encoding/json"

	"github.com/objectql/objectos-sub004/internal/audit"
)

func marshalChanges(changes []audit.FieldChange) ([]byte, error) {
	if len(changes) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(changes)
}

func (r row) toEntry() (audit.Entry, error) {
	var changes []audit.FieldChange
	if len(r.Changes) > 0 {
		if err := json.Unmarshal(r.Changes, &changes); err != nil {
			return audit.Entry{}, err
		}
	}
	return audit.Entry{
		ID:         r.ID,
		EventType:  r.EventType,
		ObjectName: r.ObjectName,
		RecordID:   r.RecordID,
		UserID:     r.UserID,
		UserName:   r.UserName,
		Changes:    changes,
		Success:    r.Success,
		Timestamp:  r.OccurredAt,
		Hash:       r.Hash,
		PrevHash:   r.PrevHash,
	}, nil
}
