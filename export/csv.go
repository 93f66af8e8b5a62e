package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/places"
)

// Header is the first CSV line.
var Header = []string{"Business Name", "Phone", "Address", "Status", "Business Type", "Notes", "Marked By", "Date", "Reviews", "Rating"}

// DateLayout formats the Date column.
const DateLayout = "1/2/2006, 3:04:05 PM"

var ErrBadHeader = errors.New("unexpected csv header")

// Row is one exported lead as it appears in the file.
type Row struct {
	Name         string
	Phone        string
	Address      string
	Status       string
	BusinessType string
	Notes        string
	MarkedBy     string
	Date         string
	Reviews      int
	Rating       string
}

// RowFor renders a lead in the given location.
func RowFor(l models.Lead, loc *time.Location) Row {
	rating := "N/A"
	if l.Rating != nil && *l.Rating > 0 {
		rating = strconv.FormatFloat(*l.Rating, 'f', -1, 64)
	}
	return Row{
		Name:         l.Name,
		Phone:        phoneOrNA(l.Phone),
		Address:      l.Address,
		Status:       l.Status.Label(),
		BusinessType: places.CategoryLabel(l.BusinessType),
		Notes:        l.Notes,
		MarkedBy:     l.AddedBy,
		Date:         time.UnixMilli(l.LastUpdated).In(loc).Format(DateLayout),
		Reviews:      l.Reviews(),
		Rating:       rating,
	}
}

func (r Row) record() []string {
	return []string{r.Name, r.Phone, r.Address, r.Status, r.BusinessType, r.Notes, r.MarkedBy, r.Date, strconv.Itoa(r.Reviews), r.Rating}
}

// WriteCSV writes the marked leads, one row each. Fields are quoted as
// needed so commas, quotes and newlines survive.
func WriteCSV(w io.Writer, leads []models.Lead, loc *time.Location) (int, error) {
	if loc == nil {
		loc = time.Local
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("failed to write csv header: %w", err)
	}
	n := 0
	for _, l := range leads {
		if !l.IsLead {
			continue
		}
		if err := cw.Write(RowFor(l, loc).record()); err != nil {
			return n, fmt.Errorf("failed to write csv row: %w", err)
		}
		n++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("failed to flush csv: %w", err)
	}
	return n, nil
}

// ReadCSV parses a file produced by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	for i := range Header {
		if head[i] != Header[i] {
			return nil, fmt.Errorf("%w: column %d is %q", ErrBadHeader, i+1, head[i])
		}
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		reviews, err := strconv.Atoi(rec[8])
		if err != nil {
			return nil, fmt.Errorf("invalid reviews %q: %w", rec[8], err)
		}
		rows = append(rows, Row{
			Name:         rec[0],
			Phone:        rec[1],
			Address:      rec[2],
			Status:       rec[3],
			BusinessType: rec[4],
			Notes:        rec[5],
			MarkedBy:     rec[6],
			Date:         rec[7],
			Reviews:      reviews,
			Rating:       rec[9],
		})
	}
	return rows, nil
}

// FileName is the default download name for an export made at t.
func FileName(t time.Time) string {
	return "sales-leads-" + t.Format("2006-01-02") + ".csv"
}
