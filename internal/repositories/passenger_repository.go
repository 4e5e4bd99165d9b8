package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	intdb "railway/internal/db"
	"railway/internal/domain/models"
)

type PassengerRepository struct {
	DB intdb.Querier
}

const passengerColumns = `id, owner_id, name, COALESCE(phone,''), COALESCE(id_card_type,''), COALESCE(id_card_number,''),
	COALESCE(discount_type,''), COALESCE(seat_preference,''), COALESCE(special_needs,''), version, created_at, updated_at`

func (r PassengerRepository) GetPassenger(ctx context.Context, ownerID, id int64) (models.Passenger, bool, error) {
	if id <= 0 {
		return models.Passenger{}, false, nil
	}
	p, err := scanPassenger(r.DB.QueryRowContext(ctx, `
		SELECT `+passengerColumns+`
		FROM passengers
		WHERE id=? AND owner_id=? AND deleted_at IS NULL
		LIMIT 1`, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Passenger{}, false, nil
	}
	if err != nil {
		return models.Passenger{}, false, err
	}
	return p, true, nil
}

func (r PassengerRepository) ListPassengers(ctx context.Context, ownerID int64) ([]models.Passenger, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+passengerColumns+`
		FROM passengers
		WHERE owner_id=? AND deleted_at IS NULL
		ORDER BY id ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Passenger{}
	for rows.Next() {
		p, err := scanPassenger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePassengerIfVersion is a single conditional UPDATE: the version check
// and the increment happen in the same statement.
func (r PassengerRepository) UpdatePassengerIfVersion(ctx context.Context, ownerID, id int64, expected int, patch models.PassengerPatch) (int, bool, error) {
	sets := []string{}
	args := []any{}
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+"=?")
			args = append(args, *v)
		}
	}
	add("name", patch.Name)
	add("phone", patch.Phone)
	add("discount_type", patch.DiscountType)
	add("seat_preference", patch.SeatPreference)
	add("special_needs", patch.SpecialNeeds)
	sets = append(sets, "version = version + 1", "updated_at=?")
	args = append(args, time.Now().UTC(), id, ownerID, expected)

	res, err := r.DB.ExecContext(ctx, `UPDATE passengers SET `+strings.Join(sets, ", ")+`
		WHERE id=? AND owner_id=? AND version=? AND deleted_at IS NULL`, args...)
	if err != nil {
		return 0, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if n != 1 {
		return 0, false, nil
	}
	return expected + 1, true, nil
}

func (r PassengerRepository) SoftDeletePassengerIfVersion(ctx context.Context, ownerID, id int64, expected int) (bool, error) {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE passengers SET deleted_at=?, updated_at=?, version = version + 1
		WHERE id=? AND owner_id=? AND version=? AND deleted_at IS NULL`,
		now, now, id, ownerID, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func scanPassenger(s rowScanner) (models.Passenger, error) {
	var p models.Passenger
	err := s.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Phone, &p.IDCardType, &p.IDCardNumber,
		&p.DiscountType, &p.SeatPreference, &p.SpecialNeeds, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
