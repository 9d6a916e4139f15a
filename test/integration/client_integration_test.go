package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodrescue/internal/api"
	"foodrescue/internal/backendtest"
	"foodrescue/internal/filter"
	"foodrescue/internal/model"
	"foodrescue/internal/session"
)

func newClient(t *testing.T, url string) (*api.Client, session.Store) {
	t.Helper()
	store := session.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	return api.NewClient(url, 5*time.Second, store, zerolog.Nop()), store
}

func strPtr(s string) *string { return &s }

func pricePtr(s string) *model.Price {
	p := model.Price(s)
	return &p
}

// TestSellerLifecycle walks the whole seller journey against the fake
// backend: register, log in, create, edit, and remove a listing.
func TestSellerLifecycle(t *testing.T) {
	ctx := context.Background()
	backend := backendtest.New(zerolog.Nop())
	defer backend.Close()

	seller, store := newClient(t, backend.URL())

	_, err := seller.Register(ctx, "somchai", "secret", model.RoleSeller)
	require.NoError(t, err)

	res, err := seller.Login(ctx, "somchai", "secret")
	require.NoError(t, err)
	assert.Equal(t, model.RoleSeller, res.User.Role)

	qty := 5
	created, err := seller.CreateFood(ctx, model.FoodFields{
		Name:             strPtr("Pad Thai"),
		Price:            pricePtr("45"),
		Quantity:         &qty,
		PlaceName:        strPtr("Old Town"),
		Description:      strPtr("Freshly made, closing stock"),
		Location:         model.NewPoint(100.5018, 13.7563),
		ImageBase64:      strPtr("aGVsbG8="),
		ImageContentType: strPtr("image/jpeg"),
	})
	require.NoError(t, err)

	mine, err := seller.MyFoods(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)
	assert.Equal(t, "image/jpeg", mine[0].ImageContentType)

	// Partial update: price changes, everything else stays.
	updated, err := seller.UpdateFood(ctx, created.ID, model.FoodFields{Price: pricePtr("120")})
	require.NoError(t, err)
	assert.Equal(t, model.Price("120"), updated.Price)
	assert.Equal(t, "Pad Thai", updated.Name)
	assert.Equal(t, 5, updated.Quantity)
	assert.Equal(t, "Old Town", updated.PlaceName)

	require.NoError(t, seller.DeleteFood(ctx, created.ID))

	mine, err = seller.MyFoods(ctx)
	require.NoError(t, err)
	assert.Empty(t, mine)

	// Logout clears the persisted session; the next authenticated call
	// fails without a request going out.
	require.NoError(t, seller.Logout())
	_, err = store.Token()
	assert.ErrorIs(t, err, session.ErrNoSession)
	_, err = seller.MyFoods(ctx)
	require.Error(t, err)
	assert.True(t, model.IsAuthError(err))
}

// TestBuyerBrowseWithFilter covers the buyer view: only available
// listings come back and the client-side filter narrows them.
func TestBuyerBrowseWithFilter(t *testing.T) {
	ctx := context.Background()
	backend := backendtest.New(zerolog.Nop())
	defer backend.Close()

	backend.SeedUser("somchai", "pw", model.RoleSeller)
	backend.SeedListing("somchai", model.FoodListing{Name: "Pad Thai", Price: "45", PlaceName: "Old Town"})
	backend.SeedListing("somchai", model.FoodListing{Name: "Green Curry", Price: "80", PlaceName: "Night Market"})
	backend.SeedListing("somchai", model.FoodListing{Name: "Mango Rice", Price: "oops", PlaceName: "Night Market"})
	backend.SeedListing("somchai", model.FoodListing{Name: "Sold Out Soup", Price: "30", Status: model.StatusUnavailable})

	buyer, _ := newClient(t, backend.URL())

	_, err := buyer.Register(ctx, "malee", "secret", model.RoleBuyer)
	require.NoError(t, err)
	_, err = buyer.Login(ctx, "malee", "secret")
	require.NoError(t, err)

	foods, err := buyer.AvailableFoods(ctx)
	require.NoError(t, err)
	require.Len(t, foods, 3, "unavailable listings never reach the buyer")

	visible := filter.State{Price: filter.Price50To100}.Apply(foods)
	require.Len(t, visible, 1)
	assert.Equal(t, "Green Curry", visible[0].Name)

	visible = filter.State{Query: "night"}.Apply(foods)
	require.Len(t, visible, 2)
	assert.Equal(t, "Green Curry", visible[0].Name)
	assert.Equal(t, "Mango Rice", visible[1].Name)

	// The unparseable price is only visible with no band selected.
	visible = filter.State{}.Apply(foods)
	assert.Len(t, visible, 3)
}

// TestExpiredTokenSurfacesAsAuthError: a token the backend no longer
// recognises fails the next call with an auth error, nothing more.
func TestExpiredTokenSurfacesAsAuthError(t *testing.T) {
	ctx := context.Background()
	backend := backendtest.New(zerolog.Nop())
	defer backend.Close()

	client, store := newClient(t, backend.URL())
	require.NoError(t, store.Set("stale-token", "seller"))

	_, err := client.MyFoods(ctx)
	require.Error(t, err)
	assert.True(t, model.IsAuthError(err))

	// The session survives; there is no forced re-login.
	token, err := store.Token()
	require.NoError(t, err)
	assert.Equal(t, "stale-token", token)
}
