package profile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/metadata"
)

const sampleDocument = `
entries:
  - pattern:
      shaders:
        ps:
          stageActive: true
          codeHash:
            lower: 0xdd6c573c46e6adf8
            upper: 0x751207727c904749
    action:
      shaders:
        ps:
          allowReZ: true
          vgprLimit: 48
  - pattern:
      always: true
    action:
      shaders:
        cs:
          waveSize: 32
          maxThreadGroupsPerCu: 4
      lateAllocVsLimit: 16
      binningOverride: 1
`

func TestUnmarshalProfileDocument(t *testing.T) {
	p := New(KindRuntime)

	require.NoError(t, UnmarshalProfile([]byte(sampleDocument), p))
	require.Equal(t, 2, p.EntryCount())

	first := &p.Entries[0]
	pattern := &first.Pattern.Shaders[metadata.ShaderStageFragment]
	assert.True(t, pattern.MatchStageActive)
	assert.True(t, pattern.MatchCodeHash)
	assert.Equal(t, metadata.ShaderHash{Lower: 0xdd6c573c46e6adf8, Upper: 0x751207727c904749}, pattern.CodeHash)
	assert.True(t, first.Action.Shaders[metadata.ShaderStageFragment].AllowReZ)

	vgpr, ok := first.Action.Shaders[metadata.ShaderStageFragment].VgprLimit.Get()
	require.True(t, ok)
	assert.Equal(t, uint32(48), vgpr)

	second := &p.Entries[1]
	assert.True(t, second.Pattern.Always)

	waveSize, ok := second.Action.Shaders[metadata.ShaderStageCompute].WaveSize.Get()
	require.True(t, ok)
	assert.Equal(t, metadata.WaveSize32, waveSize)

	lateAlloc, ok := second.Action.CreateInfo.LateAllocVsLimit.Get()
	require.True(t, ok)
	assert.Equal(t, uint32(16), lateAlloc)

	binning, ok := second.Action.CreateInfo.BinningOverride.Get()
	require.True(t, ok)
	assert.Equal(t, metadata.BinningOverrideEnable, binning)
}

func TestUnmarshalEmptyDocument(t *testing.T) {
	p := New(KindRuntime)

	require.NoError(t, UnmarshalProfile(nil, p))
	assert.Equal(t, 0, p.EntryCount())
}

func TestUnmarshalMalformedDocument(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "{{{"},
		{"unknown field", "entries:\n  - pattern:\n      happens: true\n"},
		{"unknown stage", "entries:\n  - pattern:\n      shaders:\n        xx:\n          stageActive: true\n"},
		{"invalid wave size", "entries:\n  - action:\n      shaders:\n        cs:\n          waveSize: 48\n"},
		{"invalid binning override", "entries:\n  - action:\n      binningOverride: 7\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := New(KindRuntime)
			assert.Error(t, UnmarshalProfile([]byte(tc.doc), p))
			// The profile has to stay at its zero-initialized state.
			assert.Equal(t, 0, p.EntryCount())
		})
	}
}

func TestUnmarshalClampsRegisterLimits(t *testing.T) {
	doc := "entries:\n  - action:\n      shaders:\n        vs:\n          vgprLimit: 999\n          sgprLimit: 999\n"

	p := New(KindRuntime)
	require.NoError(t, UnmarshalProfile([]byte(doc), p))
	require.Equal(t, 1, p.EntryCount())

	vgpr, ok := p.Entries[0].Action.Shaders[metadata.ShaderStageVertex].VgprLimit.Get()
	require.True(t, ok)
	assert.Equal(t, uint32(maxVgprLimit), vgpr)

	sgpr, ok := p.Entries[0].Action.Shaders[metadata.ShaderStageVertex].SgprLimit.Get()
	require.True(t, ok)
	assert.Equal(t, uint32(maxSgprLimit), sgpr)
}

func TestProfileDocumentRoundTrip(t *testing.T) {
	p := New(KindRuntime)
	require.NoError(t, UnmarshalProfile([]byte(sampleDocument), p))

	var buf bytes.Buffer
	require.NoError(t, p.Write(&buf))

	reparsed := New(KindRuntime)
	require.NoError(t, UnmarshalProfile(buf.Bytes(), reparsed))

	assert.Equal(t, p.Entries, reparsed.Entries)
}
