package personalization

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/allie-ai/allie-core/internal/core/error"
)

// Verbosity levels.
const (
	VerbosityConcise  = "concise"
	VerbosityBalanced = "balanced"
	VerbosityDetailed = "detailed"
)

// CommunicationPrefs controls the surface form of responses.
type CommunicationPrefs struct {
	UseEmoji         bool   `json:"useEmoji"`
	FormatPreference string `json:"formatPreference"` // visual, text-only
	TechnicalLevel   string `json:"technicalLevel"`   // simplified, moderate, detailed
}

// ContentFilters controls what kinds of content responses should carry.
type ContentFilters struct {
	ResearchBased   bool `json:"researchBased"`
	ActionOriented  bool `json:"actionOriented"`
	IncludeExamples bool `json:"includeExamples"`
}

// LengthPreference counts positive and negative reactions per response
// length bucket. Positive reactions increment, negative decrement.
type LengthPreference struct {
	Short  int `json:"short"`
	Medium int `json:"medium"`
	Long   int `json:"long"`
}

// Settings is a family's personalization state.
type Settings struct {
	PersonalityProfile string             `json:"personalityProfile"`
	VerbosityLevel     string             `json:"verbosityLevel"`
	FocusAreas         []string           `json:"focusAreas"`
	Communication      CommunicationPrefs `json:"communicationPreferences"`
	ContentFilters     ContentFilters     `json:"contentFilters"`

	PrioritizedIntents map[string]int     `json:"prioritizedIntents,omitempty"`
	LengthPreference   *LengthPreference  `json:"messageLengthPreference,omitempty"`
	TopicInterests     map[string]float64 `json:"topicInterests,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultSettings returns the settings a new family starts with.
func DefaultSettings() Settings {
	return Settings{
		PersonalityProfile: ProfileSupportive,
		VerbosityLevel:     VerbosityBalanced,
		FocusAreas:         []string{"workload_balance", "communication", "family_time"},
		Communication: CommunicationPrefs{
			UseEmoji:         true,
			FormatPreference: "visual",
			TechnicalLevel:   "moderate",
		},
		ContentFilters: ContentFilters{
			ResearchBased:   true,
			ActionOriented:  true,
			IncludeExamples: true,
		},
	}
}

func (s Settings) clone() Settings {
	out := s
	out.FocusAreas = append([]string(nil), s.FocusAreas...)
	if s.PrioritizedIntents != nil {
		out.PrioritizedIntents = make(map[string]int, len(s.PrioritizedIntents))
		for k, v := range s.PrioritizedIntents {
			out.PrioritizedIntents[k] = v
		}
	}
	if s.LengthPreference != nil {
		lp := *s.LengthPreference
		out.LengthPreference = &lp
	}
	if s.TopicInterests != nil {
		out.TopicInterests = make(map[string]float64, len(s.TopicInterests))
		for k, v := range s.TopicInterests {
			out.TopicInterests[k] = v
		}
	}
	return out
}

// AdaptationRecord logs one automatic adaptation applied to a family.
type AdaptationRecord struct {
	Timestamp   time.Time    `json:"timestamp"`
	Suggestions []Suggestion `json:"suggestions"`
}

// ErrNotFound reports that a family has no stored settings.
var ErrNotFound = errors.New("personalization: settings not found")

// Store persists personalization settings and the adaptation log.
type Store interface {
	LoadSettings(ctx context.Context, familyID string) (Settings, error)
	SaveSettings(ctx context.Context, familyID string, s Settings) error
	AppendAdaptation(ctx context.Context, familyID string, rec AdaptationRecord) error
}

// RedisStore keeps each family's settings as a JSON document and the
// adaptation log as a list.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func settingsKey(familyID string) string {
	return "personalization:settings:" + familyID
}

func adaptationsKey(familyID string) string {
	return "personalization:adaptations:" + familyID
}

func (s *RedisStore) LoadSettings(ctx context.Context, familyID string) (Settings, error) {
	raw, err := s.client.Get(ctx, settingsKey(familyID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Settings{}, ErrNotFound
	}
	if err != nil {
		return Settings{}, errx.WrapRedis(err)
	}

	var settings Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func (s *RedisStore) SaveSettings(ctx context.Context, familyID string, settings Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, settingsKey(familyID), raw, 0).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisStore) AppendAdaptation(ctx context.Context, familyID string, rec AdaptationRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.client.RPush(ctx, adaptationsKey(familyID), raw).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

// MemoryStore is an in-process Store for tests and demos.
type MemoryStore struct {
	settings    map[string][]byte
	adaptations map[string][]AdaptationRecord
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		settings:    map[string][]byte{},
		adaptations: map[string][]AdaptationRecord{},
	}
}

func (s *MemoryStore) LoadSettings(_ context.Context, familyID string) (Settings, error) {
	raw, ok := s.settings[familyID]
	if !ok {
		return Settings{}, ErrNotFound
	}
	var settings Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func (s *MemoryStore) SaveSettings(_ context.Context, familyID string, settings Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	s.settings[familyID] = raw
	return nil
}

func (s *MemoryStore) AppendAdaptation(_ context.Context, familyID string, rec AdaptationRecord) error {
	s.adaptations[familyID] = append(s.adaptations[familyID], rec)
	return nil
}

// Adaptations returns the recorded adaptation log for a family.
func (s *MemoryStore) Adaptations(familyID string) []AdaptationRecord {
	return s.adaptations[familyID]
}
