package reminders

import (
	"github.com/sandeepkv93/remindd/internal/model"
	"github.com/sandeepkv93/remindd/internal/storage"
)

// ToRow maps a domain reminder to its storage row, encoding the recurrence
// pattern to its JSON form.
func ToRow(rem model.Reminder) (storage.Reminder, error) {
	encoded, err := model.EncodeRecurrence(rem.Recurrence)
	if err != nil {
		return storage.Reminder{}, err
	}
	return storage.Reminder{
		ID:          rem.ID,
		OwnerID:     rem.OwnerID,
		Title:       rem.Title,
		Description: rem.Description,
		DueAt:       rem.DueAt,
		Category:    rem.Category,
		Priority:    string(rem.Priority),
		IsRecurring: rem.IsRecurring,
		Recurrence:  encoded,
		IsCompleted: rem.IsCompleted,
		CreatedAt:   rem.CreatedAt,
	}, nil
}

// FromRow is the inverse of ToRow.
func FromRow(row storage.Reminder) (model.Reminder, error) {
	rec, err := model.ParseRecurrence(row.Recurrence)
	if err != nil {
		return model.Reminder{}, err
	}
	return model.Reminder{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Title:       row.Title,
		Description: row.Description,
		DueAt:       row.DueAt,
		Category:    row.Category,
		Priority:    model.Priority(row.Priority),
		IsRecurring: row.IsRecurring,
		Recurrence:  rec,
		IsCompleted: row.IsCompleted,
		CreatedAt:   row.CreatedAt,
	}, nil
}

func fromRows(rows []storage.Reminder) ([]model.Reminder, error) {
	out := make([]model.Reminder, 0, len(rows))
	for _, row := range rows {
		rem, err := FromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rem)
	}
	return out, nil
}
