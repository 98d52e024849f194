package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name         string
		rawID        string
		expectErr    string
		expectedAddr Address
	}{
		{
			name:         "single node",
			rawID:        "datasource",
			expectedAddr: New("datasource"),
		},
		{
			name:         "nested path",
			rawID:        "nibetaseries_participant_wf.single_subject_01_wf.inputnode",
			expectedAddr: New("nibetaseries_participant_wf", "single_subject_01_wf", "inputnode"),
		},
		{name: "error - empty string", rawID: "", expectErr: "cannot be empty"},
		{name: "error - empty path segment", rawID: "a..b", expectErr: "empty segment"},
		{name: "error - trailing dot", rawID: "a.", expectErr: "empty segment"},
		{name: "error - just dot", rawID: ".", expectErr: "empty segment"},
		{name: "error - hyphen", rawID: "a.single-subject", expectErr: `invalid name "single-subject"`},
		{name: "error - leading digit", rawID: "01_wf", expectErr: `invalid name "01_wf"`},
		{name: "error - index syntax", rawID: "a.b[0]", expectErr: `invalid name "b[0]"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr, err := Parse(tc.rawID)

			if tc.expectErr != "" {
				assert.ErrorContains(t, err, tc.expectErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expectedAddr, addr)
			assert.Equal(t, tc.rawID, addr.String())
		})
	}
}

func TestAddress(t *testing.T) {
	addr := New("outer_wf", "inner_wf")

	child := addr.Child("datasource")
	assert.Equal(t, "outer_wf.inner_wf.datasource", child.String())
	assert.Equal(t, "outer_wf.inner_wf", addr.String(), "Child must not modify the receiver")

	head, rest := child.Head()
	assert.Equal(t, "outer_wf", head)
	assert.Equal(t, "inner_wf.datasource", rest.String())

	head, rest = Address{}.Head()
	assert.Empty(t, head)
	assert.True(t, rest.IsZero())

	assert.NotEqual(t, addr, child)
	assert.Equal(t, Address{}, New())
	assert.Empty(t, Address{}.String())
}
