package backup

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/remindd/internal/storage"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

const noRemindersRow = "No reminders found"

// exportedUser and exportedReminder pin the on-file field names so the
// export format survives internal renames.
type exportedUser struct {
	ID        int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

type exportedReminder struct {
	ID          string `json:"id"`
	OwnerID     int64  `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueAt       string `json:"due_date"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	IsRecurring bool   `json:"is_recurring"`
	Recurrence  string `json:"recurrence_pattern"`
	IsCompleted bool   `json:"is_completed"`
	CreatedAt   string `json:"created_at"`
}

type exportedData struct {
	User      exportedUser       `json:"user"`
	Reminders []exportedReminder `json:"reminders"`
}

var reminderCSVHeader = []string{
	"id", "user_id", "title", "description", "due_date", "category",
	"priority", "is_recurring", "recurrence_pattern", "is_completed", "created_at",
}

var userCSVHeader = []string{"user_id", "first_name", "last_name", "username", "created_at"}

// ExportUser serializes one user's profile and all of their reminders,
// completed included. JSON yields a single file; CSV yields two sibling
// files (<base>_user.csv and <base>_reminders.csv) and returns the
// nominal <base>.csv path.
func (m *Manager) ExportUser(ctx context.Context, ownerID int64, format string) (string, error) {
	user, err := m.repo.GetUser(ctx, ownerID)
	if err != nil {
		return "", err
	}
	rows, err := m.repo.ListReminders(ctx, ownerID, true)
	if err != nil {
		return "", err
	}

	data := exportedData{User: exportUser(user), Reminders: make([]exportedReminder, 0, len(rows))}
	for _, row := range rows {
		data.Reminders = append(data.Reminders, exportReminder(row))
	}

	base := fmt.Sprintf("user_%d_data_%s", ownerID, m.now().Format(backupTimeFormat))
	switch format {
	case FormatJSON:
		path := filepath.Join(m.dir, base+".json")
		if err := writeJSON(path, data); err != nil {
			return "", err
		}
		m.logger.Info("user data exported", "owner_id", ownerID, "path", path)
		return path, nil
	case FormatCSV:
		path := filepath.Join(m.dir, base+".csv")
		if err := writeCSV(path, data); err != nil {
			return "", err
		}
		m.logger.Info("user data exported", "owner_id", ownerID, "path", path)
		return path, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ImportUser re-inserts a previously exported user and their reminders.
// Reminder ids are regenerated by the store; rows are not deduplicated.
// A non-zero overrideOwnerID retargets every row to that owner.
func (m *Manager) ImportUser(ctx context.Context, path string, overrideOwnerID int64) error {
	var data exportedData
	var err error
	switch {
	case strings.HasSuffix(path, ".json"):
		data, err = readJSON(path)
	case strings.HasSuffix(path, ".csv"):
		data, err = readCSV(path)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return err
	}

	ownerID := data.User.ID
	if overrideOwnerID != 0 {
		ownerID = overrideOwnerID
	}

	user, err := importUser(data.User)
	if err != nil {
		return err
	}
	user.ID = ownerID
	if err := m.repo.UpsertUser(ctx, user); err != nil {
		return fmt.Errorf("import user: %w", err)
	}

	for _, exp := range data.Reminders {
		row, err := importReminder(exp)
		if err != nil {
			return err
		}
		row.ID = "" // fresh id on re-insert
		row.OwnerID = ownerID
		if _, err := m.repo.CreateReminder(ctx, row); err != nil {
			return fmt.Errorf("import reminder %q: %w", exp.Title, err)
		}
	}

	m.logger.Info("user data imported", "owner_id", ownerID, "path", path, "reminders", len(data.Reminders))
	return nil
}

func exportUser(u storage.User) exportedUser {
	return exportedUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func exportReminder(r storage.Reminder) exportedReminder {
	due := ""
	if r.DueAt != nil {
		due = r.DueAt.UTC().Format(time.RFC3339)
	}
	return exportedReminder{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		Description: r.Description,
		DueAt:       due,
		Category:    r.Category,
		Priority:    r.Priority,
		IsRecurring: r.IsRecurring,
		Recurrence:  r.Recurrence,
		IsCompleted: r.IsCompleted,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func importUser(u exportedUser) (storage.User, error) {
	created, err := parseOptionalTime(u.CreatedAt)
	if err != nil {
		return storage.User{}, fmt.Errorf("import user created_at: %w", err)
	}
	out := storage.User{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Username: u.Username}
	if created != nil {
		out.CreatedAt = *created
	}
	return out, nil
}

func importReminder(r exportedReminder) (storage.Reminder, error) {
	due, err := parseOptionalTime(r.DueAt)
	if err != nil {
		return storage.Reminder{}, fmt.Errorf("import reminder due_date: %w", err)
	}
	return storage.Reminder{
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		Description: r.Description,
		DueAt:       due,
		Category:    r.Category,
		Priority:    r.Priority,
		IsRecurring: r.IsRecurring,
		Recurrence:  r.Recurrence,
		IsCompleted: r.IsCompleted,
	}, nil
}

func parseOptionalTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	tm, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func writeJSON(path string, data exportedData) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func readJSON(path string) (exportedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return exportedData{}, fmt.Errorf("read export: %w", err)
	}
	var data exportedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return exportedData{}, fmt.Errorf("decode export: %w", err)
	}
	return data, nil
}

func csvSiblings(path string) (userPath, remindersPath string) {
	base := strings.TrimSuffix(path, ".csv")
	return base + "_user.csv", base + "_reminders.csv"
}

func writeCSV(path string, data exportedData) error {
	userPath, remindersPath := csvSiblings(path)

	u := data.User
	userRows := [][]string{
		userCSVHeader,
		{strconv.FormatInt(u.ID, 10), u.FirstName, u.LastName, u.Username, u.CreatedAt},
	}
	if err := writeCSVFile(userPath, userRows); err != nil {
		return err
	}

	if len(data.Reminders) == 0 {
		return writeCSVFile(remindersPath, [][]string{{noRemindersRow}})
	}
	rows := make([][]string, 0, len(data.Reminders)+1)
	rows = append(rows, reminderCSVHeader)
	for _, r := range data.Reminders {
		rows = append(rows, []string{
			r.ID, strconv.FormatInt(r.OwnerID, 10), r.Title, r.Description, r.DueAt,
			r.Category, r.Priority, strconv.FormatBool(r.IsRecurring), r.Recurrence,
			strconv.FormatBool(r.IsCompleted), r.CreatedAt,
		})
	}
	return writeCSVFile(remindersPath, rows)
}

func readCSV(path string) (exportedData, error) {
	userPath, remindersPath := csvSiblings(path)

	userRows, err := readCSVFile(userPath)
	if err != nil {
		return exportedData{}, err
	}
	if len(userRows) < 2 || len(userRows[1]) < len(userCSVHeader) {
		return exportedData{}, fmt.Errorf("decode export: malformed user file %s", userPath)
	}
	id, err := strconv.ParseInt(userRows[1][0], 10, 64)
	if err != nil {
		return exportedData{}, fmt.Errorf("decode export user_id: %w", err)
	}
	data := exportedData{User: exportedUser{
		ID:        id,
		FirstName: userRows[1][1],
		LastName:  userRows[1][2],
		Username:  userRows[1][3],
		CreatedAt: userRows[1][4],
	}}

	reminderRows, err := readCSVFile(remindersPath)
	if err != nil {
		return exportedData{}, err
	}
	if len(reminderRows) == 0 || (len(reminderRows) == 1 && reminderRows[0][0] == noRemindersRow) {
		return data, nil
	}
	for _, row := range reminderRows[1:] {
		if len(row) < len(reminderCSVHeader) {
			return exportedData{}, fmt.Errorf("decode export: malformed reminder row in %s", remindersPath)
		}
		ownerID, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			return exportedData{}, fmt.Errorf("decode export reminder user_id: %w", err)
		}
		recurring, _ := strconv.ParseBool(row[7])
		completed, _ := strconv.ParseBool(row[9])
		data.Reminders = append(data.Reminders, exportedReminder{
			ID:          row[0],
			OwnerID:     ownerID,
			Title:       row[2],
			Description: row[3],
			DueAt:       row[4],
			Category:    row[5],
			Priority:    row[6],
			IsRecurring: recurring,
			Recurrence:  row[8],
			IsCompleted: completed,
			CreatedAt:   row[10],
		})
	}
	return data, nil
}

func writeCSVFile(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	return rows, nil
}
