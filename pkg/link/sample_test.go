package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSampleLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Sample
		wantErr bool
	}{
		{
			name: "valid line - first sample",
			line: "0,1.0000,0.0",
			want: Sample{Index: 0, Voltage: 1.0, ElapsedMs: 0},
		},
		{
			name: "valid line - trailing carriage return",
			line: "12,1.6500,120.0\r",
			want: Sample{Index: 12, Voltage: 1.65, ElapsedMs: 120},
		},
		{
			name: "valid line - fractional elapsed",
			line: "3,0.0008,0.3",
			want: Sample{Index: 3, Voltage: 0.0008, ElapsedMs: 0.3},
		},
		{
			name:    "invalid - header",
			line:    "Sample#,Voltage(V),Time(ms)",
			wantErr: true,
		},
		{
			name:    "invalid - wrong number of fields",
			line:    "1,1.0000",
			wantErr: true,
		},
		{
			name:    "invalid - too many fields",
			line:    "1,1.0000,10.0,extra",
			wantErr: true,
		},
		{
			name:    "invalid - negative index",
			line:    "-1,1.0000,10.0",
			wantErr: true,
		},
		{
			name:    "invalid - non-numeric voltage",
			line:    "1,abc,10.0",
			wantErr: true,
		},
		{
			name:    "invalid - non-numeric elapsed",
			line:    "1,1.0000,abc",
			wantErr: true,
		},
		{
			name:    "invalid - footer",
			line:    "Total: 3 samples",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSampleLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Index, got.Index)
			assert.InDelta(t, tt.want.Voltage, got.Voltage, 1e-6)
			assert.InDelta(t, tt.want.ElapsedMs, got.ElapsedMs, 1e-4)
		})
	}
}
