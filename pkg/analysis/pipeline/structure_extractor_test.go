package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexStructureExtractor_Python(t *testing.T) {
	content := `import os
from pkg import helper

CONFIG = {}

class Handler:
    def process(self, request):
        return request
`
	e := NewRegexStructureExtractor()
	summary, findings, err := e.ExtractStructure(context.Background(), "file-1", content, "Python")

	require.NoError(t, err)
	assert.Empty(t, findings)
	assert.Equal(t, []string{"process"}, summary.Functions)
	assert.Equal(t, []string{"Handler"}, summary.Classes)
	assert.Equal(t, []string{"os", "pkg"}, summary.Imports)
	assert.Equal(t, []string{"CONFIG"}, summary.Variables)
}

func TestRegexStructureExtractor_Go(t *testing.T) {
	content := `package sample

import "fmt"

type Widget struct {
	Name string
}

var defaultWidget = Widget{}

func NewWidget(name string) *Widget {
	return &Widget{Name: name}
}
`
	e := NewRegexStructureExtractor()
	summary, _, err := e.ExtractStructure(context.Background(), "file-1", content, "Go")

	require.NoError(t, err)
	assert.Contains(t, summary.Functions, "NewWidget")
	assert.Equal(t, []string{"Widget"}, summary.Classes)
	assert.Contains(t, summary.Imports, "fmt")
	assert.Contains(t, summary.Variables, "defaultWidget")
}

func TestRegexStructureExtractor_UnknownLanguageReturnsEmptySummary(t *testing.T) {
	e := NewRegexStructureExtractor()
	summary, findings, err := e.ExtractStructure(context.Background(), "file-1", "whatever", "COBOL")

	require.NoError(t, err)
	assert.Empty(t, findings)
	assert.Empty(t, summary.Functions)
	assert.Empty(t, summary.Classes)
	assert.Empty(t, summary.Imports)
	assert.Empty(t, summary.Variables)
}
