package service

import (
	"context"
	"testing"

	"github.com/AP5B/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferCreateAndUpdate(t *testing.T) {
	offers := newFakeOfferStore()
	svc := NewOfferService(offers)
	ctx := context.Background()

	offer, err := svc.Create(ctx, 1, &OfferBody{
		Title:    "Calculus I",
		Category: "Mathematics",
		Price:    3000,
	})
	require.NoError(t, err)
	assert.NotZero(t, offer.ID)

	updated, err := svc.Update(ctx, 1, offer.ID, &OfferBody{
		Title:    "Calculus I & II",
		Category: "Mathematics",
		Price:    3500,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3500), updated.Price)
}

func TestOfferCreateUnknownCategory(t *testing.T) {
	svc := NewOfferService(newFakeOfferStore())

	_, err := svc.Create(context.Background(), 1, &OfferBody{
		Title:    "Knitting",
		Category: "Crafts",
		Price:    1000,
	})
	svcErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidInput, svcErr.Code)
}

func TestOfferUpdateByNonOwner(t *testing.T) {
	offers := newFakeOfferStore()
	offers.addOffer(models.ClassOffer{ID: 1, AuthorID: 1, Title: "Physics", Category: "Physics", Price: 2000})
	svc := NewOfferService(offers)

	_, err := svc.Update(context.Background(), 2, 1, &OfferBody{
		Title: "Physics", Category: "Physics", Price: 1,
	})
	svcErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeForbidden, svcErr.Code)
}

func TestOfferDeleteHidesFromReads(t *testing.T) {
	offers := newFakeOfferStore()
	offers.addOffer(models.ClassOffer{ID: 1, AuthorID: 1, Title: "Physics", Category: "Physics", Price: 2000})
	svc := NewOfferService(offers)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, 1, 1))

	_, err := svc.GetByID(ctx, 1)
	svcErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNotFound, svcErr.Code)
}

func TestReviewOnePerTeacher(t *testing.T) {
	reviews := newFakeReviewStore()
	users := newFakeUserStore()
	users.addUser(models.User{ID: 1, Role: models.RoleTeacher})
	svc := NewReviewService(reviews, users)
	ctx := context.Background()

	_, err := svc.Create(ctx, 2, &ReviewBody{TeacherID: 1, Rating: 5, Content: "great"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, 2, &ReviewBody{TeacherID: 1, Rating: 1, Content: "changed my mind"})
	svcErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeConflict, svcErr.Code)
}

func TestReviewSelfReviewForbidden(t *testing.T) {
	users := newFakeUserStore()
	users.addUser(models.User{ID: 1, Role: models.RoleTeacher})
	svc := NewReviewService(newFakeReviewStore(), users)

	_, err := svc.Create(context.Background(), 1, &ReviewBody{TeacherID: 1, Rating: 5})
	svcErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeForbidden, svcErr.Code)
}

func TestReviewTargetMustBeTeacher(t *testing.T) {
	users := newFakeUserStore()
	users.addUser(models.User{ID: 3, Role: models.RoleStudent})
	svc := NewReviewService(newFakeReviewStore(), users)

	_, err := svc.Create(context.Background(), 2, &ReviewBody{TeacherID: 3, Rating: 4})
	svcErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNotFound, svcErr.Code)
}

func TestReviewUpdateOwnership(t *testing.T) {
	reviews := newFakeReviewStore()
	users := newFakeUserStore()
	users.addUser(models.User{ID: 1, Role: models.RoleTeacher})
	svc := NewReviewService(reviews, users)
	ctx := context.Background()

	review, err := svc.Create(ctx, 2, &ReviewBody{TeacherID: 1, Rating: 3})
	require.NoError(t, err)

	_, err = svc.Update(ctx, 9, review.ID, 5, "")
	svcErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeForbidden, svcErr.Code)

	updated, err := svc.Update(ctx, 2, review.ID, 5, "better than I thought")
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
}

func TestAvailabilityRejectsOutOfRange(t *testing.T) {
	svc := NewAvailabilityService(newFakeAvailabilityStore())

	err := svc.Save(context.Background(), 1, []AvailabilityCell{{Day: 7, Slot: 0}})
	svcErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidInput, svcErr.Code)
}

func TestAvailabilitySaveAndDelete(t *testing.T) {
	store := newFakeAvailabilityStore()
	svc := NewAvailabilityService(store)
	ctx := context.Background()

	cells := []AvailabilityCell{{Day: 1, Slot: 9}, {Day: 1, Slot: 10}}
	require.NoError(t, svc.Save(ctx, 1, cells))

	listed, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	// Re-adding an occupied cell conflicts.
	err = svc.Save(ctx, 1, cells[:1])
	svcErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeConflict, svcErr.Code)

	require.NoError(t, svc.Delete(ctx, 1, cells))
	listed, err = svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestAccountDelete(t *testing.T) {
	users := newFakeUserStore()
	users.addUser(models.User{ID: 1, Role: models.RoleTeacher})
	svc := NewAccountService(users)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, 1))

	_, err := svc.GetByID(ctx, 1)
	svcErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNotFound, svcErr.Code)

	// Deleting again reads as gone.
	err = svc.Delete(ctx, 1)
	svcErr, ok = AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNotFound, svcErr.Code)
}
