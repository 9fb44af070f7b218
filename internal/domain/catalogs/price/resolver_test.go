package price

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/id"
	"github.com/Essau-dev/PolleriaMontiel/internal/core/types"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/customer"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/catalogs/product"
)

// --- fakes ---

type fakeRuleRepo struct {
	rules []*Rule
}

func (f *fakeRuleRepo) Create(_ context.Context, rule *Rule) error {
	f.rules = append(f.rules, rule)
	return nil
}

func (f *fakeRuleRepo) GetByID(_ context.Context, ruleID id.ID) (*Rule, error) {
	for _, r := range f.rules {
		if r.ID == ruleID {
			return r, nil
		}
	}
	return nil, apperror.NewNotFound("price rule", ruleID.String())
}

func (f *fakeRuleRepo) Update(_ context.Context, rule *Rule) error {
	for i, r := range f.rules {
		if r.ID == rule.ID {
			f.rules[i] = rule
			return nil
		}
	}
	return apperror.NewNotFound("price rule", rule.ID.String())
}

func (f *fakeRuleRepo) SetActive(_ context.Context, ruleID id.ID, active bool) error {
	for _, r := range f.rules {
		if r.ID == ruleID {
			r.Active = active
			return nil
		}
	}
	return apperror.NewNotFound("price rule", ruleID.String())
}

func (f *fakeRuleRepo) FindApplicable(_ context.Context, item product.ItemRef, tier customer.Tier, at time.Time) ([]*Rule, error) {
	var out []*Rule
	for _, r := range f.rules {
		if r.Active && r.Tier == tier && r.Item.Equal(item) && r.InWindow(at) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].MinQuantity > out[j].MinQuantity
	})
	return out, nil
}

func (f *fakeRuleRepo) FindConflicting(_ context.Context, rule *Rule) ([]*Rule, error) {
	var out []*Rule
	for _, r := range f.rules {
		if r.ID == rule.ID || !r.Active {
			continue
		}
		if r.Tier == rule.Tier && r.Item.Equal(rule.Item) &&
			r.MinQuantity == rule.MinQuantity && r.WindowOverlaps(rule) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) ListForItem(_ context.Context, item product.ItemRef, _ domain.ListFilter) (domain.ListResult[*Rule], error) {
	var out []*Rule
	for _, r := range f.rules {
		if r.Item.Equal(item) {
			out = append(out, r)
		}
	}
	return domain.ListResult[*Rule]{Items: out, TotalCount: int64(len(out))}, nil
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- helpers ---

func ladderService(rules ...*Rule) *Service {
	repo := &fakeRuleRepo{rules: rules}
	return NewService(repo, fakeTxManager{})
}

func kg(s string) types.Weight {
	return types.MustWeight(s)
}

func mxn(s string) types.Money {
	return types.MustMoney(s)
}

// --- tests ---

func TestResolveBreastLadder(t *testing.T) {
	pech := product.RefProduct("PECH")
	svc := ladderService(
		NewRule(pech, customer.TierPublico, kg("0"), mxn("120.00")),
		NewRule(pech, customer.TierPublico, kg("10"), mxn("100.00")),
	)
	ctx := context.Background()

	t.Run("below threshold pays base price", func(t *testing.T) {
		q, err := svc.Resolve(ctx, pech, customer.TierPublico, kg("8"))
		require.NoError(t, err)
		assert.True(t, q.PricePerKg.Equal(mxn("120.00")), "got %s", q.PricePerKg)
		assert.Equal(t, kg("0"), q.Threshold)
	})

	t.Run("at threshold pays volume price", func(t *testing.T) {
		q, err := svc.Resolve(ctx, pech, customer.TierPublico, kg("10"))
		require.NoError(t, err)
		assert.True(t, q.PricePerKg.Equal(mxn("100.00")), "got %s", q.PricePerKg)
	})

	t.Run("above threshold pays volume price", func(t *testing.T) {
		q, err := svc.Resolve(ctx, pech, customer.TierPublico, kg("12"))
		require.NoError(t, err)
		assert.True(t, q.PricePerKg.Equal(mxn("100.00")), "got %s", q.PricePerKg)
		assert.Equal(t, kg("10"), q.Threshold)
	})
}

func TestResolveIsDeterministic(t *testing.T) {
	pech := product.RefProduct("PECH")
	svc := ladderService(
		NewRule(pech, customer.TierPublico, kg("0"), mxn("120.00")),
		NewRule(pech, customer.TierPublico, kg("5"), mxn("110.00")),
		NewRule(pech, customer.TierPublico, kg("10"), mxn("100.00")),
	)
	ctx := context.Background()

	first, err := svc.Resolve(ctx, pech, customer.TierPublico, kg("7.250"))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		q, err := svc.Resolve(ctx, pech, customer.TierPublico, kg("7.250"))
		require.NoError(t, err)
		assert.Equal(t, first.RuleID, q.RuleID)
		assert.True(t, q.PricePerKg.Equal(first.PricePerKg))
	}
}

func TestResolveLadderMonotonicity(t *testing.T) {
	// Higher quantity never resolves to a higher threshold's inferior
	// position: the winning threshold is non-decreasing in quantity.
	pech := product.RefProduct("PECH")
	svc := ladderService(
		NewRule(pech, customer.TierPublico, kg("0"), mxn("120.00")),
		NewRule(pech, customer.TierPublico, kg("5"), mxn("110.00")),
		NewRule(pech, customer.TierPublico, kg("10"), mxn("100.00")),
	)
	ctx := context.Background()

	var prev types.Weight = -1
	for _, qty := range []string{"0.500", "4.999", "5", "7", "10", "25"} {
		q, err := svc.Resolve(ctx, pech, customer.TierPublico, kg(qty))
		require.NoError(t, err, "qty %s", qty)
		assert.GreaterOrEqual(t, q.Threshold, prev, "qty %s", qty)
		prev = q.Threshold
	}
}

func TestResolveNeverCrossesTiers(t *testing.T) {
	pech := product.RefProduct("PECH")
	svc := ladderService(
		NewRule(pech, customer.TierPublico, kg("0"), mxn("120.00")),
	)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, pech, customer.TierCocina, kg("5"))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNoApplicablePrice, appErr.Code)
}

func TestResolveNoBaseRuleFails(t *testing.T) {
	// A ladder starting above zero leaves small quantities unpriced.
	pech := product.RefProduct("PECH")
	svc := ladderService(
		NewRule(pech, customer.TierMayoreo, kg("10"), mxn("95.00")),
	)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, pech, customer.TierMayoreo, kg("3"))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNoApplicablePrice, appErr.Code)

	q, err := svc.Resolve(ctx, pech, customer.TierMayoreo, kg("10"))
	require.NoError(t, err)
	assert.True(t, q.PricePerKg.Equal(mxn("95.00")))
}

func TestResolveIgnoresLapsedWindows(t *testing.T) {
	pech := product.RefProduct("PECH")
	lastWeekStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	lastWeekEnd := time.Date(2026, 8, 7, 23, 59, 59, 0, time.UTC)

	promo := NewRule(pech, customer.TierPublico, kg("0"), mxn("99.00"))
	promo.ValidFrom = &lastWeekStart
	promo.ValidUntil = &lastWeekEnd

	svc := ladderService(
		promo,
		NewRule(pech, customer.TierPublico, kg("0"), mxn("120.00")),
	)
	ctx := context.Background()

	// During the promo window the promo wins over the unbounded base
	// rule only through threshold order; both are threshold 0, so the
	// repo order decides. Resolution after the window must ignore it.
	at := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	q, err := svc.ResolveAt(ctx, pech, customer.TierPublico, kg("2"), at)
	require.NoError(t, err)
	assert.True(t, q.PricePerKg.Equal(mxn("120.00")), "lapsed promo leaked: %s", q.PricePerKg)
}

func TestResolveIgnoresInactiveRules(t *testing.T) {
	pech := product.RefProduct("PECH")
	retired := NewRule(pech, customer.TierPublico, kg("10"), mxn("80.00"))
	retired.Active = false

	svc := ladderService(
		retired,
		NewRule(pech, customer.TierPublico, kg("0"), mxn("120.00")),
	)
	ctx := context.Background()

	q, err := svc.Resolve(ctx, pech, customer.TierPublico, kg("15"))
	require.NoError(t, err)
	assert.True(t, q.PricePerKg.Equal(mxn("120.00")))
}

func TestResolveRejectsNonPositiveQuantity(t *testing.T) {
	pech := product.RefProduct("PECH")
	svc := ladderService(
		NewRule(pech, customer.TierPublico, kg("0"), mxn("120.00")),
	)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, pech, customer.TierPublico, kg("0"))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestCreateRejectsDuplicateThreshold(t *testing.T) {
	pech := product.RefProduct("PECH")
	existing := NewRule(pech, customer.TierPublico, kg("10"), mxn("100.00"))
	svc := ladderService(existing)
	ctx := context.Background()

	dup := NewRule(pech, customer.TierPublico, kg("10"), mxn("90.00"))
	err := svc.Create(ctx, dup)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
}

func TestCreateAllowsDisjointValidityWindows(t *testing.T) {
	pech := product.RefProduct("PECH")
	until := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)
	current := NewRule(pech, customer.TierPublico, kg("10"), mxn("100.00"))
	current.ValidUntil = &until
	svc := ladderService(current)
	ctx := context.Background()

	// A rule scheduled to start after the current one lapses shares
	// the threshold but not the window.
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	scheduled := NewRule(pech, customer.TierPublico, kg("10"), mxn("95.00"))
	scheduled.ValidFrom = &from
	require.NoError(t, svc.Create(ctx, scheduled))

	// An open-ended rule overlaps both and still conflicts.
	overlapping := NewRule(pech, customer.TierPublico, kg("10"), mxn("90.00"))
	err := svc.Create(ctx, overlapping)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
}

func TestCreateRejectsNonPositivePrice(t *testing.T) {
	pech := product.RefProduct("PECH")
	svc := ladderService()
	ctx := context.Background()

	bad := NewRule(pech, customer.TierPublico, kg("0"), mxn("0.00"))
	err := svc.Create(ctx, bad)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestSubproductLadderIsIndependent(t *testing.T) {
	subID := id.New()
	sub := product.RefSubproduct(subID)
	pech := product.RefProduct("PECH")

	svc := ladderService(
		NewRule(pech, customer.TierPublico, kg("0"), mxn("120.00")),
		NewRule(sub, customer.TierPublico, kg("0"), mxn("135.00")),
	)
	ctx := context.Background()

	q, err := svc.Resolve(ctx, sub, customer.TierPublico, kg("2"))
	require.NoError(t, err)
	assert.True(t, q.PricePerKg.Equal(mxn("135.00")))
}
