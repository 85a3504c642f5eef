package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/burton0621/barix-site-sub000/pkg/db/option"
	"github.com/burton0621/barix-site-sub000/pkg/db/pagination"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type widget struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	OrgID     int64
	Name      string
	CreatedAt time.Time
}

func setupStore(t *testing.T) Repository[widget] {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&widget{}))
	return ProvideStore[widget](conn)
}

func TestStoreFindWithPagination(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, store.Create(ctx, &widget{ID: i, OrgID: 7, Name: "w"}))
	}
	require.NoError(t, store.Create(ctx, &widget{ID: 99, OrgID: 8, Name: "other"}))

	first, err := store.Find(ctx, &widget{OrgID: 7},
		option.ApplyPagination(pagination.Pagination{PageSize: 2}),
		option.WithSortBy(option.QuerySortBy{}),
	)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.EqualValues(t, 5, first[0].ID)

	token := pagination.EncodeCursor(pagination.Cursor{ID: 4})

	second, err := store.Find(ctx, &widget{OrgID: 7},
		option.ApplyPagination(pagination.Pagination{PageSize: 2, PageToken: token}),
		option.WithSortBy(option.QuerySortBy{}),
	)
	require.NoError(t, err)
	require.Len(t, second, 3)
	assert.EqualValues(t, 3, second[0].ID)
}

func TestStoreFindOneMissingReturnsNil(t *testing.T) {
	store := setupStore(t)

	got, err := store.FindOne(context.Background(), &widget{ID: 404})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestApplyOperatorIgnoresUnsafeFields(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	require.NoError(t, store.BatchCreate(ctx, []*widget{
		{ID: 1, OrgID: 1, Name: "a"},
		{ID: 2, OrgID: 1, Name: "b"},
	}))

	items, err := store.Find(ctx, &widget{OrgID: 1},
		option.ApplyOperator(option.Condition{Field: "id", Operator: option.GTE, Value: 2}),
		option.ApplyOperator(option.Condition{Field: "id; drop table widgets", Operator: option.EQ, Value: 1}),
	)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].Name)

	count, err := store.Count(ctx, &widget{OrgID: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestStoreExists(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	require.NoError(t, store.Create(ctx, &widget{ID: 1, OrgID: 3, Name: "a"}))

	found, err := store.Exists(ctx, &widget{OrgID: 3, Name: "a"})
	require.NoError(t, err)
	assert.True(t, found)

	found, err = store.Exists(ctx, &widget{OrgID: 3, Name: "b"})
	require.NoError(t, err)
	assert.False(t, found)
}
