package ligand_test

import (
	"strings"
	"testing"

	"github.com/aigendrug/cid-dispatch/ligand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		want    []ligand.Ligand
		wantErr bool
		wantRow int
	}{
		{
			name: "Well Formed",
			file: "name,smiles,std_value\nlig-1,CCO,1.5\nlig-2,c1ccccc1,0.25\n",
			want: []ligand.Ligand{
				{Name: "lig-1", SMILES: "CCO", StdValue: 1.5},
				{Name: "lig-2", SMILES: "c1ccccc1", StdValue: 0.25},
			},
		},
		{
			name: "Reordered Columns",
			file: "std_value,name,smiles\n2.5,lig-1,CCO\n",
			want: []ligand.Ligand{
				{Name: "lig-1", SMILES: "CCO", StdValue: 2.5},
			},
		},
		{
			name: "Uppercase Header",
			file: "Name,SMILES,Std_Value\nlig-1,CCO,1\n",
			want: []ligand.Ligand{
				{Name: "lig-1", SMILES: "CCO", StdValue: 1},
			},
		},
		{
			name:    "Empty File",
			file:    "",
			wantErr: true,
		},
		{
			name:    "Missing Column",
			file:    "name,smiles\nlig-1,CCO\n",
			wantErr: true,
		},
		{
			name:    "Non Numeric Value",
			file:    "name,smiles,std_value\nlig-1,CCO,1.5\nlig-2,CCN,abc\n",
			wantErr: true,
			wantRow: 2,
		},
		{
			name:    "Wrong Column Count",
			file:    "name,smiles,std_value\nlig-1,CCO,1.5\nlig-2,CCN\n",
			wantErr: true,
			wantRow: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ligand.Parse(strings.NewReader(tt.file))

			if tt.wantErr {
				require.Error(t, err)
				var parseErr *ligand.ParseError
				require.ErrorAs(t, err, &parseErr)
				if tt.wantRow > 0 {
					assert.Equal(t, tt.wantRow, parseErr.Row)
				}
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
