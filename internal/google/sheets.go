package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"rentcars/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	reservationsSheet = "Reservations"
	lastColumn        = "J"
	timestampLayout   = "2006-01-02 15:04:05"
)

var (
	errRowNotFound = errors.New("reservation row not found")
	rowInRange     = regexp.MustCompile(`![A-Z]+(\d+)`)
)

var reservationHeader = []interface{}{
	"ID", "User ID", "User Email", "Car ID", "Car", "Start Date", "End Date", "Days", "Total", "Created At",
}

// SheetsService mirrors reservations into one sheet, one row per reservation id.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	rowCache      map[string]int
	cacheMu       sync.RWMutex
}

func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsService, error) {
	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return newSheetsService(srv, spreadsheetID), nil
}

func newSheetsService(srv *sheets.Service, spreadsheetID string) *SheetsService {
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		rowCache:      make(map[string]int),
	}
}

// TestConnection проверяет подключение к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, reservationsSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// EnsureHeader writes the header row.
func (s *SheetsService) EnsureHeader(ctx context.Context) error {
	rangeData := fmt.Sprintf("%s!A1:%s1", reservationsSheet, lastColumn)
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{reservationHeader},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// WarmUpCache populates the row index cache by reading the entire ID column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, reservationsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read id column: %w", err)
	}

	cache := make(map[string]int, len(resp.Values))
	for i, row := range resp.Values {
		if id := cellString(row); id != "" && id != reservationHeader[0] {
			cache[id] = i + 1
		}
	}

	s.cacheMu.Lock()
	s.rowCache = cache
	s.cacheMu.Unlock()
	return nil
}

// UpsertReservation updates the reservation's row or appends a new one.
func (s *SheetsService) UpsertReservation(ctx context.Context, reservation *models.Reservation) error {
	if reservation == nil || reservation.ID == "" {
		return errors.New("reservation id is required")
	}

	rowIdx, err := s.FindReservationRow(ctx, reservation.ID)
	if errors.Is(err, errRowNotFound) {
		return s.AppendReservation(ctx, reservation)
	}
	if err != nil {
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:%s%d", reservationsSheet, rowIdx, lastColumn, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{ReservationRowValues(reservation)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update reservation row: %w", err)
	}
	return nil
}

// AppendReservation adds a row and remembers where the sheet put it.
func (s *SheetsService) AppendReservation(ctx context.Context, reservation *models.Reservation) error {
	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, reservationsSheet+"!A:A", &sheets.ValueRange{
		Values: [][]interface{}{ReservationRowValues(reservation)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append reservation row: %w", err)
	}

	if resp.Updates != nil {
		if row, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(reservation.ID, row)
		}
	}
	return nil
}

// FindReservationRow locates the 1-based row of the reservation id in column A.
func (s *SheetsService) FindReservationRow(ctx context.Context, reservationID string) (int, error) {
	if row, ok := s.getCachedRow(reservationID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, reservationsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to read id column: %w", err)
	}

	for i, row := range resp.Values {
		if cellString(row) == reservationID {
			rowIdx := i + 1
			s.setCachedRow(reservationID, rowIdx)
			return rowIdx, nil
		}
	}
	return 0, errRowNotFound
}

func (s *SheetsService) getCachedRow(id string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

// ClearCache clears the row index cache.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)
}

// ReservationRowValues renders one sheet row, columns A through J.
func ReservationRowValues(r *models.Reservation) []interface{} {
	car := ""
	if r.Car != nil {
		car = strings.TrimSpace(r.Car.Brand + " " + r.Car.Model)
	}
	return []interface{}{
		r.ID,
		r.UserID,
		r.UserEmail,
		r.CarID,
		car,
		r.StartDate.UTC().Format(models.DateLayout),
		r.EndDate.UTC().Format(models.DateLayout),
		r.Days,
		r.Total,
		r.CreatedAt.UTC().Format(timestampLayout),
	}
}

func cellString(row []interface{}) string {
	if len(row) == 0 {
		return ""
	}
	switch v := row[0].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// rowFromRange extracts the first row number from an A1 range like "Reservations!A10:J10".
func rowFromRange(a1 string) (int, bool) {
	m := rowInRange.FindStringSubmatch(a1)
	if len(m) != 2 {
		return 0, false
	}
	row, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return row, true
}
