package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allie-ai/allie-core/internal/family"
)

func TestExtractChildNamesValidatesAgainstRoster(t *testing.T) {
	fam := testFamily()

	entities := ExtractEntities("book a checkup for Maya", fam, testNow)
	assert.Equal(t, []string{"Maya"}, entities.ChildNames)

	// capitalized names outside the roster are dropped
	entities = ExtractEntities("book a checkup for Bob", fam, testNow)
	assert.Empty(t, entities.ChildNames)

	// without a roster any capitalized candidate is accepted
	entities = ExtractEntities("book a checkup for Bob", nil, testNow)
	assert.Equal(t, []string{"Bob"}, entities.ChildNames)
}

func TestExtractProviderNames(t *testing.T) {
	entities := ExtractEntities("we saw Dr. Smith about the rash", nil, testNow)
	assert.Equal(t, []string{"Smith"}, entities.ProviderNames)

	entities = ExtractEntities("Professor Jane Doe teaches piano", nil, testNow)
	assert.Equal(t, []string{"Jane Doe"}, entities.ProviderNames)
}

func TestExtractProviderSpecialties(t *testing.T) {
	entities := ExtractEntities("find a pediatrician or a dentist nearby", nil, testNow)
	assert.Equal(t, []string{"pediatrician", "dentist"}, entities.ProviderSpecialties)
}

func TestExtractLocations(t *testing.T) {
	entities := ExtractEntities("soccer practice at Riverside Park on Saturday", nil, testNow)
	require.NotEmpty(t, entities.Locations)
	assert.Equal(t, "at", entities.Locations[0].Kind)
	assert.Equal(t, "Riverside Park", entities.Locations[0].Location)

	entities = ExtractEntities("the office is at 42 Main Street", nil, testNow)
	var addr *Location
	for i := range entities.Locations {
		if entities.Locations[i].Kind == "address" {
			addr = &entities.Locations[i]
		}
	}
	require.NotNil(t, addr)
	assert.Equal(t, "42 Main Street", addr.Location)
}

func TestExtractPeopleMarksFamilyMembers(t *testing.T) {
	fam := testFamily()
	people := ExtractPeople("dinner with Sara and Tom", fam)
	require.GreaterOrEqual(t, len(people), 2)

	byName := map[string]Person{}
	for _, p := range people {
		if p.Name != "" {
			byName[p.Name] = p
		}
	}
	require.Contains(t, byName, "Sara")
	require.Contains(t, byName, "Tom")
	assert.True(t, byName["Sara"].IsFamilyMember)
	assert.Equal(t, family.RoleParent, byName["Sara"].Role)
	assert.True(t, byName["Tom"].IsFamilyMember)
}

func TestExtractPeopleRoleMentions(t *testing.T) {
	people := ExtractPeople("ask papa to handle bedtime", nil)
	var found bool
	for _, p := range people {
		if p.Kind == "role" && p.Role == family.RoleTypePapa {
			found = true
		}
	}
	assert.True(t, found)
}

func TestExtractEventTypesAndEmotions(t *testing.T) {
	entities := ExtractEntities("remind me about the party, I'm so excited", nil, testNow)

	types := map[string]bool{}
	for _, ev := range entities.EventTypes {
		types[ev.Type] = true
	}
	assert.True(t, types["social"])
	assert.True(t, types["reminder"])

	require.NotEmpty(t, entities.Emotions)
	assert.Equal(t, "positive", entities.Emotions[0].Type)
}
