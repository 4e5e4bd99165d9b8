package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railway/internal/domain"
	"railway/internal/domain/models"
	"railway/internal/repositories"
)

type countingNotifier struct {
	mu  sync.Mutex
	got []models.Passenger
	err error
}

func (n *countingNotifier) PassengerUpdated(_ context.Context, p models.Passenger) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, p)
	return n.err
}

func str(s string) *string { return &s }

func newPassengerFixture() (PassengerService, *repositories.MemoryStore, *countingNotifier, models.Passenger) {
	store := repositories.NewMemoryStore()
	p := store.AddPassenger(models.Passenger{OwnerID: 1, Name: "张三", Phone: "13800138000", DiscountType: "成人"})
	n := &countingNotifier{}
	return PassengerService{Store: store, Notifier: n}, store, n, p
}

func TestPassengerUpdate_StaleVersionLoses(t *testing.T) {
	svc, _, n, p := newPassengerFixture()
	ctx := context.Background()

	first, err := svc.Update(ctx, 1, p.ID, models.PassengerPatch{Name: str("张三丰")}, 1)
	require.NoError(t, err)
	assert.Equal(t, models.UpdateResult{Success: true, Version: 2}, first)

	second, err := svc.Update(ctx, 1, p.ID, models.PassengerPatch{Name: str("李四")}, 1)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	assert.False(t, second.Success)

	got, err := svc.Get(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "张三丰", got.Name)
	assert.Equal(t, 2, got.Version)

	require.Len(t, n.got, 1)
	assert.Equal(t, 2, n.got[0].Version)
}

func TestPassengerUpdate_ConcurrentSameVersionOneWinner(t *testing.T) {
	svc, _, _, p := newPassengerFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Update(ctx, 1, p.ID, models.PassengerPatch{SpecialNeeds: str("轮椅")}, 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil && res.Success {
				wins++
			} else if errors.Is(err, domain.ErrVersionConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, 9, conflicts)

	got, err := svc.Get(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
}

func TestPassengerUpdate_NotFoundCases(t *testing.T) {
	svc, _, _, p := newPassengerFixture()
	ctx := context.Background()

	_, err := svc.Update(ctx, 2, p.ID, models.PassengerPatch{Name: str("X")}, 1)
	assert.ErrorIs(t, err, domain.ErrPassengerNotFound, "other owner")

	_, err = svc.Update(ctx, 1, 999, models.PassengerPatch{Name: str("X")}, 1)
	assert.ErrorIs(t, err, domain.ErrPassengerNotFound)

	require.NoError(t, svc.Delete(ctx, 1, p.ID, 1))
	_, err = svc.Update(ctx, 1, p.ID, models.PassengerPatch{Name: str("X")}, 2)
	assert.ErrorIs(t, err, domain.ErrPassengerNotFound, "soft-deleted")

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPassengerUpdate_Validation(t *testing.T) {
	svc, _, _, p := newPassengerFixture()
	ctx := context.Background()

	cases := map[string]models.PassengerPatch{
		"empty patch":   {},
		"blank name":    {Name: str("  ")},
		"short phone":   {Phone: str("1380")},
		"bad discount":  {DiscountType: str("VIP")},
		"letters phone": {Phone: str("1380013800a")},
	}
	for name, patch := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Update(ctx, 1, p.ID, patch, 1)
			assert.True(t, domain.IsValidation(err), "got %v", err)
		})
	}

	_, err := svc.Update(ctx, 1, p.ID, models.PassengerPatch{Name: str("X")}, 0)
	assert.True(t, domain.IsValidation(err))

	res, err := svc.Update(ctx, 1, p.ID, models.PassengerPatch{Phone: str("138 0013 8001"), DiscountType: str("学生")}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Version)
	got, _ := svc.Get(ctx, 1, p.ID)
	assert.Equal(t, "13800138001", got.Phone)
	assert.Equal(t, "学生", got.DiscountType)
}

func TestPassengerUpdate_NotifierFailureDoesNotFailUpdate(t *testing.T) {
	svc, _, n, p := newPassengerFixture()
	n.err = errors.New("hub down")

	res, err := svc.Update(context.Background(), 1, p.ID, models.PassengerPatch{SeatPreference: str("A")}, 1)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestPassengerUpdate_StorageFailure(t *testing.T) {
	svc, store, _, p := newPassengerFixture()
	store.FailOn("UpdatePassengerIfVersion", errors.New("lock wait timeout"))

	_, err := svc.Update(context.Background(), 1, p.ID, models.PassengerPatch{Name: str("X")}, 1)
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
	got, _ := svc.Get(context.Background(), 1, p.ID)
	assert.Equal(t, 1, got.Version)
}

func TestPassengerDelete_StaleVersion(t *testing.T) {
	svc, _, _, p := newPassengerFixture()
	_, err := svc.Update(context.Background(), 1, p.ID, models.PassengerPatch{Name: str("X")}, 1)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), 1, p.ID, 1)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}
