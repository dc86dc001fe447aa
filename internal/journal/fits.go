package journal

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Raimguzhinov/curvequant/internal/curve"
	"github.com/Raimguzhinov/curvequant/internal/fit"
)

// timeLayout фиксированной ширины: строки сортируются как время.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Record: одна строка журнала.
type Record struct {
	Key       string
	RunID     uuid.UUID
	CreatedAt time.Time
	Colors    int
	Pixels    int
	Result    fit.Result
}

// Key вычисляет ключ журнала: SHA-256 от цветов гистограммы и настроек,
// влияющих на результат подбора. Число горутин, размер пачки и логгер
// в ключ не входят.
func Key(hist fit.Histogram, opts fit.Options) string {
	h := sha256.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	put(curve.Schema)
	put(uint64(hist.Len()))
	for i := 0; i < hist.Len(); i++ {
		c, n := hist.At(i)
		put(uint64(c.Packed()))
		put(uint64(n))
	}

	put(uint64(opts.Strategy))
	put(uint64(opts.Ranges))
	put(uint64(opts.Metric))
	put(uint64(opts.Jitter))
	put(uint64(opts.NumPoints))
	if opts.Strategy == fit.StrategyGrid {
		put(uint64(opts.GridSteps))
	} else {
		put(uint64(opts.SearchDepth))
	}
	put(opts.Seed)
	return hex.EncodeToString(h.Sum(nil))
}

func pixels(hist fit.Histogram) int {
	total := 0
	for i := 0; i < hist.Len(); i++ {
		_, n := hist.At(i)
		total += n
	}
	return total
}

// Lookup ищет результат для гистограммы и настроек.
func (s *Store) Lookup(ctx context.Context, hist fit.Histogram, opts fit.Options) (fit.Result, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT result FROM fits WHERE key = ?", Key(hist, opts)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fit.Result{}, false, nil
	}
	if err != nil {
		return fit.Result{}, false, fmt.Errorf("поиск в журнале: %w", err)
	}

	var res fit.Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return fit.Result{}, false, fmt.Errorf("разбор записи журнала: %w", err)
	}
	// запись более новой схемы считается промахом
	if err := res.Params.Validate(); err != nil {
		return fit.Result{}, false, nil
	}
	return res, true, nil
}

// Store сохраняет результат, заменяя прежний с тем же ключом.
func (s *Store) Store(ctx context.Context, hist fit.Histogram, opts fit.Options, res fit.Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fits(key, run_id, created_at, colors, pixels, strategy, metric, error, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			run_id = excluded.run_id,
			created_at = excluded.created_at,
			error = excluded.error,
			result = excluded.result
	`,
		Key(hist, opts),
		uuid.NewString(),
		time.Now().UTC().Format(timeLayout),
		hist.Len(),
		pixels(hist),
		res.Strategy.String(),
		res.Metric.String(),
		float64(res.Error),
		string(raw),
	)
	if err != nil {
		return fmt.Errorf("запись в журнал: %w", err)
	}
	return nil
}

// Recent возвращает до limit последних записей, новые первыми.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, run_id, created_at, colors, pixels, result
		FROM fits
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("чтение журнала: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec            Record
			runID, created string
			raw            string
		)
		if err := rows.Scan(&rec.Key, &runID, &created, &rec.Colors, &rec.Pixels, &raw); err != nil {
			return nil, fmt.Errorf("чтение журнала: %w", err)
		}
		if rec.RunID, err = uuid.Parse(runID); err != nil {
			return nil, fmt.Errorf("run_id %q: %w", runID, err)
		}
		if rec.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("created_at %q: %w", created, err)
		}
		if err := json.Unmarshal([]byte(raw), &rec.Result); err != nil {
			return nil, fmt.Errorf("разбор записи журнала: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
