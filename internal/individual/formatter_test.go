package individual

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"

	"Constituent/internal/model"
	"Constituent/pkg/token"
	"Constituent/pkg/tokenfmt"
)

const (
	testSortFormat    = "{contact.last_name}{, }{contact.first_name}"
	testDisplayFormat = "{contact.individual_prefix}{ }{contact.first_name}{ }{contact.last_name}{ }{contact.individual_suffix}"
)

type fakeLabels struct {
	labels map[string]string // field/value -> label
	calls  int
}

func (f *fakeLabels) Label(ctx context.Context, entity, field, value string) (string, error) {
	f.calls++
	return f.labels[field+"/"+value], nil
}

type fakeStore struct {
	contacts map[int64]*model.Contact
	emails   map[int64]string
	err      error
}

func (s *fakeStore) GetByID(ctx context.Context, id int64) (*model.Contact, error) {
	if s.err != nil {
		return nil, s.err
	}
	c, ok := s.contacts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeStore) GetPrimaryEmail(ctx context.Context, contactID int64) (string, error) {
	e, ok := s.emails[contactID]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	return e, nil
}

type fakeSettings map[string]string

func (s fakeSettings) Get(ctx context.Context, key string) (string, error) {
	return s[key], nil
}

func defaultLabels() *fakeLabels {
	return &fakeLabels{labels: map[string]string{
		"prefix_id/4": "Dr.",
		"prefix_id/3": "Mr.",
		"suffix_id/1": "Jr.",
		"suffix_id/2": "Sr.",
	}}
}

func newTestFormatter(store *fakeStore, settings fakeSettings) *Formatter {
	if store == nil {
		store = &fakeStore{}
	}
	if settings == nil {
		settings = fakeSettings{
			model.SettingSortNameFormat:    testSortFormat,
			model.SettingDisplayNameFormat: testDisplayFormat,
		}
	}
	return NewFormatter(defaultLabels(), store, token.NewRegistry(), settings, tokenfmt.New())
}

func individualParams(kv ...string) *Params {
	p := NewParams()
	p.Set(ContactType, "Individual")
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(Field(kv[i]), kv[i+1])
	}
	return p
}

func primary(v bool) *bool {
	return &v
}

func TestFormat_NotIndividualReturnsNil(t *testing.T) {
	f := newTestFormatter(nil, nil)

	for _, contactType := range []string{"Organization", "Household", ""} {
		p := NewParams()
		p.Set(ContactType, contactType)
		p.Set(FirstName, "Jane")

		got, err := f.Format(context.Background(), p, &model.Contact{})
		require.NoError(t, err)
		assert.Nil(t, got, contactType)
	}
}

func TestFormat_BuildsNamesFromTemplates(t *testing.T) {
	f := newTestFormatter(nil, nil)
	p := individualParams("first_name", "  Jane ", "last_name", "Doe", "prefix_id", "4", "suffix_id", "1")

	got, err := f.Format(context.Background(), p, &model.Contact{})
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Doe, Jane", got.SortName)
	assert.Equal(t, "Dr. Jane Doe Jr.", got.DisplayName)
	assert.Equal(t, "Jane", p.Get(FirstName))
	assert.Equal(t, "Dr.", p.Get(PrefixLabel))
	assert.Equal(t, "Jr.", p.Get(SuffixLabel))
	assert.Equal(t, "4", p.Get(PrefixID))
}

func TestFormat_SpacedDisplayFormatCollapses(t *testing.T) {
	f := newTestFormatter(nil, fakeSettings{
		model.SettingSortNameFormat:    testSortFormat,
		model.SettingDisplayNameFormat: "{prefix} {first} {last} {suffix}",
	})

	got, err := f.Format(context.Background(), individualParams("first_name", "Jane", "last_name", "Doe"), &model.Contact{})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.DisplayName)
	assert.Equal(t, "Doe, Jane", got.SortName)
}

func TestFormat_NullValuesTreatedAsEmpty(t *testing.T) {
	f := newTestFormatter(nil, nil)
	p := individualParams(
		"first_name", "Jane",
		"middle_name", "null",
		"last_name", "null",
		"nick_name", "null",
		"formal_title", "null",
		"birth_date", "null",
		"deceased_date", "null",
	)

	got, err := f.Format(context.Background(), p, &model.Contact{})
	require.NoError(t, err)

	for _, field := range nullableFields {
		assert.True(t, p.Has(field), field)
		assert.Equal(t, "", p.Get(field), field)
	}
	assert.Equal(t, "Jane", got.SortName)
	assert.Equal(t, "Jane", got.DisplayName)
}

func TestFormat_NullLastNameOnlyFallsBackToEmail(t *testing.T) {
	f := newTestFormatter(nil, nil)
	p := individualParams("last_name", "null")
	p.Email = []EmailBlock{{Email: "a@b.com", IsPrimary: primary(true)}}

	got, err := f.Format(context.Background(), p, &model.Contact{})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", got.SortName)
	assert.Equal(t, "a@b.com", got.DisplayName)
}

func TestFormat_EmailFallbackWhenNoNames(t *testing.T) {
	f := newTestFormatter(nil, nil)
	p := individualParams("first_name", "", "last_name", "")
	p.Email = []EmailBlock{{Email: "a@b.com", IsPrimary: primary(true)}}

	got, err := f.Format(context.Background(), p, &model.Contact{})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", got.SortName)
	assert.Equal(t, "a@b.com", got.DisplayName)
}

func TestFormat_PrimaryEmailIsFirstBlockWithKeyPresent(t *testing.T) {
	f := newTestFormatter(nil, nil)
	p := individualParams()
	p.Email = []EmailBlock{
		{Email: "no-key@example.org"},
		{Email: "false-flag@example.org", IsPrimary: primary(false)},
		{Email: "true-flag@example.org", IsPrimary: primary(true)},
	}

	got, err := f.Format(context.Background(), p, &model.Contact{})
	require.NoError(t, err)
	assert.Equal(t, "false-flag@example.org", got.DisplayName)
}

func TestFormat_PrimaryEmailFromStore(t *testing.T) {
	store := &fakeStore{
		contacts: map[int64]*model.Contact{7: {BaseModel: model.BaseModel{ID: 7}, ContactType: model.ContactTypeIndividual}},
		emails:   map[int64]string{7: "stored@example.org"},
	}
	f := newTestFormatter(store, nil)
	contact := &model.Contact{BaseModel: model.BaseModel{ID: 7}}

	got, err := f.Format(context.Background(), individualParams(), contact)
	require.NoError(t, err)
	assert.Equal(t, "stored@example.org", got.DisplayName)
	assert.Equal(t, "stored@example.org", got.SortName)
}

func TestFormat_UniqueIDFallback(t *testing.T) {
	f := newTestFormatter(nil, nil)
	p := individualParams("user_unique_id", "http://openid.example.org/jane")

	got, err := f.Format(context.Background(), p, &model.Contact{})
	require.NoError(t, err)
	assert.Equal(t, "http://openid.example.org/jane", got.DisplayName)
	assert.Equal(t, "http://openid.example.org/jane", got.SortName)
}

func TestFormat_PriorValuesFallback(t *testing.T) {
	f := newTestFormatter(nil, nil)
	p := individualParams("display_name", "Prior Display", "sort_name", "Prior, Sort")

	got, err := f.Format(context.Background(), p, &model.Contact{})
	require.NoError(t, err)
	assert.Equal(t, "Prior Display", got.DisplayName)
	assert.Equal(t, "Prior, Sort", got.SortName)
}

func TestFormat_SortFallsBackToDisplayName(t *testing.T) {
	f := newTestFormatter(nil, fakeSettings{
		model.SettingSortNameFormat:    "",
		model.SettingDisplayNameFormat: testDisplayFormat,
	})

	got, err := f.Format(context.Background(), individualParams("first_name", "Jane", "last_name", "Doe"), &model.Contact{})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.DisplayName)
	assert.Equal(t, "Jane Doe", got.SortName)
}

func TestFormat_NothingAvailableKeepsEntityValues(t *testing.T) {
	f := newTestFormatter(nil, nil)
	contact := &model.Contact{SortName: "Kept, Sort", DisplayName: "Kept Display"}

	got, err := f.Format(context.Background(), individualParams(), contact)
	require.NoError(t, err)
	assert.Equal(t, "Kept, Sort", got.SortName)
	assert.Equal(t, "Kept Display", got.DisplayName)
}

func TestFormat_Idempotent(t *testing.T) {
	f := newTestFormatter(nil, nil)

	build := func() *Params {
		return individualParams("first_name", "Jane", "middle_name", "Q", "last_name", "Doe", "prefix_id", "4")
	}

	first, err := f.Format(context.Background(), build(), &model.Contact{})
	require.NoError(t, err)
	second, err := f.Format(context.Background(), build(), &model.Contact{})
	require.NoError(t, err)

	assert.Equal(t, first.SortName, second.SortName)
	assert.Equal(t, first.DisplayName, second.DisplayName)
}

func existingSmith() *fakeStore {
	return &fakeStore{contacts: map[int64]*model.Contact{
		1: {
			BaseModel:   model.BaseModel{ID: 1},
			ContactType: model.ContactTypeIndividual,
			FirstName:   "John",
			LastName:    "Smith",
			NickName:    "Johnny",
			PrefixID:    3,
			SuffixID:    2,
			FormalTitle: "Professor",
		},
	}}
}

func TestFormat_PreserveDBNameKeepsPersistedValues(t *testing.T) {
	f := newTestFormatter(existingSmith(), nil)
	p := individualParams(
		"first_name", "Jack",
		"last_name", "Jones",
		"nick_name", "Jacky",
		"prefix_id", "4",
		"suffix_id", "1",
		"formal_title", "Sir",
	)
	p.PreserveDBName = true
	contact := &model.Contact{BaseModel: model.BaseModel{ID: 1}, FirstName: "Jack", LastName: "Jones", PrefixID: 4, SuffixID: 1}

	got, err := f.Format(context.Background(), p, contact)
	require.NoError(t, err)

	assert.Equal(t, "Smith", got.LastName)
	assert.Equal(t, "John", got.FirstName)
	assert.Equal(t, "Johnny", got.NickName)
	assert.Equal(t, 3, got.PrefixID)
	assert.Equal(t, 2, got.SuffixID)
	assert.Equal(t, "Professor", got.FormalTitle)
	assert.Equal(t, "Smith", p.Get(LastName))
	assert.Equal(t, "3", p.Get(PrefixID))
	assert.Equal(t, "Professor", p.Get(FormalTitle))
	assert.Equal(t, "Smith, John", got.SortName)
	assert.Equal(t, "Mr. John Smith Sr.", got.DisplayName)
}

func TestFormat_PreserveDBNameFillsOnlyEmptyDBFields(t *testing.T) {
	store := &fakeStore{contacts: map[int64]*model.Contact{
		1: {BaseModel: model.BaseModel{ID: 1}, ContactType: model.ContactTypeIndividual, LastName: "Smith"},
	}}
	f := newTestFormatter(store, nil)
	p := individualParams("first_name", "Jack", "last_name", "Jones")
	p.PreserveDBName = true

	got, err := f.Format(context.Background(), p, &model.Contact{BaseModel: model.BaseModel{ID: 1}, FirstName: "Jack", LastName: "Jones"})
	require.NoError(t, err)
	assert.Equal(t, "Smith", got.LastName)
	assert.Equal(t, "Jack", got.FirstName)
	assert.Equal(t, "Smith, Jack", got.SortName)
}

func TestFormat_WithoutPreserveInputWins(t *testing.T) {
	f := newTestFormatter(existingSmith(), nil)
	p := individualParams("last_name", "Jones")
	contact := &model.Contact{BaseModel: model.BaseModel{ID: 1}, LastName: "Jones"}

	got, err := f.Format(context.Background(), p, contact)
	require.NoError(t, err)

	assert.Equal(t, "Jones", got.LastName)
	// first name and prefix/suffix come from the database when absent from the request
	assert.Equal(t, "Jones, John", got.SortName)
	assert.Equal(t, "Mr. John Jones Sr.", got.DisplayName)
}

func TestFormat_ExplicitEmptyNameClearsButEmptyPrefixDoesNot(t *testing.T) {
	f := newTestFormatter(existingSmith(), nil)
	p := individualParams("first_name", "", "prefix_id", "", "suffix_id", "")
	contact := &model.Contact{BaseModel: model.BaseModel{ID: 1}}

	got, err := f.Format(context.Background(), p, contact)
	require.NoError(t, err)

	// explicit empty first_name is honoured; explicit empty prefix/suffix keeps no label
	// from the request but does not fall through to the database either
	assert.Equal(t, "Smith", got.SortName)
	assert.Equal(t, "Smith", got.DisplayName)
}

func TestFormat_ExplicitEmptyFormalTitleOverridesDB(t *testing.T) {
	f := newTestFormatter(existingSmith(), fakeSettings{
		model.SettingSortNameFormat:    testSortFormat,
		model.SettingDisplayNameFormat: "{contact.formal_title}{ }{contact.last_name}",
	})

	withTitle, err := f.Format(context.Background(), individualParams(), &model.Contact{BaseModel: model.BaseModel{ID: 1}})
	require.NoError(t, err)
	assert.Equal(t, "Professor Smith", withTitle.DisplayName)

	cleared, err := f.Format(context.Background(), individualParams("formal_title", ""), &model.Contact{BaseModel: model.BaseModel{ID: 1}})
	require.NoError(t, err)
	assert.Equal(t, "Smith", cleared.DisplayName)
}

func TestFormat_MissingReloadSkipsMerge(t *testing.T) {
	f := newTestFormatter(&fakeStore{}, nil)

	got, err := f.Format(context.Background(), individualParams("first_name", "Jane"), &model.Contact{BaseModel: model.BaseModel{ID: 99}})
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.DisplayName)
}

func TestFormat_StoreErrorReturned(t *testing.T) {
	f := newTestFormatter(&fakeStore{err: errors.New("connection refused")}, nil)

	got, err := f.Format(context.Background(), individualParams("first_name", "Jane"), &model.Contact{BaseModel: model.BaseModel{ID: 1}})
	assert.Nil(t, got)
	assert.ErrorContains(t, err, "connection refused")
}

func TestFormat_CustomTokenCategory(t *testing.T) {
	registry := token.NewRegistry()
	registry.Register("custom", map[string]string{"custom.house": "House"})
	f := NewFormatter(defaultLabels(), &fakeStore{}, registry, fakeSettings{
		model.SettingSortNameFormat:    testSortFormat,
		model.SettingDisplayNameFormat: "{contact.first_name}{ - }{custom.house}",
	}, tokenfmt.New())

	got, err := f.Format(context.Background(), individualParams("first_name", "Jane", "house", "Gryffindor"), &model.Contact{})
	require.NoError(t, err)
	assert.Equal(t, "Jane - Gryffindor", got.DisplayName)
}

func TestDisplayName(t *testing.T) {
	f := newTestFormatter(nil, nil)

	tests := []struct {
		name    string
		contact model.Contact
		want    string
	}{
		{"all parts", model.Contact{PrefixID: 4, FirstName: "Jane", MiddleName: "Q", LastName: "Doe", SuffixID: 1}, "Dr. Jane Q Doe Jr."},
		{"no middle", model.Contact{FirstName: "Jane", LastName: "Doe"}, "Jane Doe"},
		{"only last and suffix", model.Contact{LastName: "Doe", SuffixID: 2}, "Doe Sr."},
		{"unknown prefix", model.Contact{PrefixID: 42, FirstName: "Jane"}, "Jane"},
		{"empty", model.Contact{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.contact
			assert.Equal(t, tt.want, f.DisplayName(context.Background(), &c))
		})
	}
}

func TestFromContact(t *testing.T) {
	p := FromContact(&model.Contact{
		ContactType: model.ContactTypeIndividual,
		FirstName:   "Jane",
		PrefixID:    4,
		Emails: []model.Email{
			{Email: "other@example.org"},
			{Email: "jane@example.org", IsPrimary: true},
		},
	})

	assert.True(t, p.DataExists())
	assert.Equal(t, "Jane", p.Get(FirstName))
	assert.Equal(t, "4", p.Get(PrefixID))
	assert.True(t, p.Has(SuffixID))
	assert.Equal(t, 0, p.Int(SuffixID))
	assert.Equal(t, "jane@example.org", p.primaryEmail())
}

func TestFormat_EmailToken(t *testing.T) {
	settings := fakeSettings{
		model.SettingSortNameFormat:    testSortFormat,
		model.SettingDisplayNameFormat: "{contact.first_name}{ }{contact.last_name}{ / }{contact.email}",
	}

	t.Run("from request", func(t *testing.T) {
		f := newTestFormatter(nil, settings)
		p := individualParams("first_name", "Jane", "last_name", "Doe")
		p.Email = []EmailBlock{{Email: "jane@example.org", IsPrimary: primary(true)}}

		got, err := f.Format(context.Background(), p, &model.Contact{})
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe / jane@example.org", got.DisplayName)
	})

	t.Run("from stored primary", func(t *testing.T) {
		store := &fakeStore{contacts: map[int64]*model.Contact{7: {
			BaseModel:   model.BaseModel{ID: 7},
			ContactType: model.ContactTypeIndividual,
			FirstName:   "Jane",
			LastName:    "Doe",
			Emails: []model.Email{
				{Email: "other@example.org"},
				{Email: "stored@example.org", IsPrimary: true},
			},
		}}}
		f := newTestFormatter(store, settings)

		got, err := f.Format(context.Background(), individualParams(), &model.Contact{BaseModel: model.BaseModel{ID: 7}})
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe / stored@example.org", got.DisplayName)
	})

	t.Run("no email drops separators", func(t *testing.T) {
		f := newTestFormatter(nil, settings)

		got, err := f.Format(context.Background(), individualParams("first_name", "Jane", "last_name", "Doe"), &model.Contact{})
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", got.DisplayName)
	})
}

func TestFormat_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	f := newTestFormatter(nil, nil)
	_, err := f.Format(context.Background(), individualParams("first_name", "Jane"), &model.Contact{})
	require.NoError(t, err)

	var found bool
	for _, s := range recorder.Ended() {
		if s.Name() == "Formatter.Format" {
			found = true
		}
	}
	assert.True(t, found)
}
