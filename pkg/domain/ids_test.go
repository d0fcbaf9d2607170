package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "civreg/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseEventID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseEventID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseEventID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		parsed, err := ParseEventID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, EventID(validUUID), parsed)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	eventID := EventID(uuid.New())
	userID := UserID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ EventID = userID   // compile error
	// var _ UserID = eventID   // compile error

	// Verify they're distinct at runtime too
	assert.NotEqual(t, uuid.UUID(eventID), uuid.UUID(userID))
}

// TestParseID_SecurityInvariants validates security-critical parsing rules.
// Parsing must reject attack vectors at API entry points.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Attack vectors
		{"SQL injection attempt", "'; DROP TABLE events;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400​-e29b-41d4-a716-446655440000", true},

		// Edge cases
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},

		// Valid
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEventID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestAllIDTypes_ConsistentBehavior ensures all ID types have identical
// parsing behavior.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errEvent := ParseEventID(validUUID)
		_, errAction := ParseActionID(validUUID)
		_, errUser := ParseUserID(validUUID)
		_, errLocation := ParseLocationID(validUUID)

		require.NoError(t, errEvent)
		require.NoError(t, errAction)
		require.NoError(t, errUser)
		require.NoError(t, errLocation)
	})

	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errEvent := ParseEventID(input)
			_, errAction := ParseActionID(input)
			_, errUser := ParseUserID(input)
			_, errLocation := ParseLocationID(input)

			require.Error(t, errEvent)
			require.Error(t, errAction)
			require.Error(t, errUser)
			require.Error(t, errLocation)
		})
	}
}

func TestTransactionID(t *testing.T) {
	assert.True(t, TransactionID("").IsNil())
	assert.False(t, TransactionID("txn-1").IsNil())
	assert.Equal(t, "txn-1", TransactionID("txn-1").String())
}
