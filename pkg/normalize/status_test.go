package normalize

import (
	"testing"

	"github.com/danexplore/JiraSQL/pkg/model"
)

func statusOf(s *model.WorkstreamStatus) string {
	if s == nil {
		return "<nil>"
	}
	return string(*s)
}

func TestAggregateReuseIgnoresOrder(t *testing.T) {
	children := []Child{
		{Summary: "Contrato - Elaborar", Status: "Aberto"},
		{Summary: "Conteúdo - Entregar", Status: "Resolvido"},
		{Summary: "Vídeo - Gravar", Status: "Pendente"},
	}
	reversed := []Child{children[2], children[1], children[0]}

	for _, input := range [][]Child{children, reversed, nil} {
		rollup := Aggregate(model.ItemTypeReuse, input)
		for _, s := range []*model.WorkstreamStatus{rollup.Contract, rollup.Content, rollup.Video} {
			if statusOf(s) != string(model.StatusReuse) {
				t.Errorf("Expected %q, got %q", model.StatusReuse, statusOf(s))
			}
		}
		if rollup.HasVideo != (len(input) > 0) {
			t.Errorf("Expected HasVideo=%v, got %v", len(input) > 0, rollup.HasVideo)
		}
	}
}

func TestAggregateReuseUnaccentedVideo(t *testing.T) {
	rollup := Aggregate(model.ItemTypeReuse, []Child{
		{Summary: "Conteúdo - Entregar", Status: "Aberto"},
		{Summary: "Video aula extra", Status: "Aberto"},
	})
	if !rollup.HasVideo {
		t.Error("Expected a later video child to set HasVideo")
	}
}

func TestAggregateBucketPriority(t *testing.T) {
	testCases := []struct {
		name     string
		statuses []string
		expected string
	}{
		{"open dominates resolved", []string{"Resolvido", "Aberto"}, "Aberto"},
		{"approved counts as closed", []string{"Pendente", "Fechado/Aprovado"}, "Fechado"},
		{"closed beats in resolution", []string{"Em Resolução", "Resolvido"}, "Fechado"},
		{"in resolution beats pending", []string{"Reopen", "Em Resolução"}, "Em Resolução"},
		{"reopen is pending", []string{"Reopen"}, "Pendente"},
		{"unknown status", []string{"Cancelado"}, "<nil>"},
		{"no children", nil, "<nil>"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var children []Child
			for _, s := range tc.statuses {
				children = append(children, Child{Summary: "CONTEÚDO - ENTREGAR: Disciplina", Status: s})
			}
			rollup := Aggregate(model.ItemTypeComplete, children)
			if got := statusOf(rollup.Content); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
			if rollup.Contract != nil || rollup.Video != nil {
				t.Error("Expected other workstreams to stay unresolved")
			}
		})
	}
}

func TestAggregateBuckets(t *testing.T) {
	rollup := Aggregate(model.ItemTypeModified, []Child{
		{Summary: "contrato - elaborar", Status: "Resolvido"},
		{Summary: "Conteúdo - Entregar: Ética", Status: "Em Resolução"},
		{Summary: "Vídeo - Gravar: Ética", Status: "Aberto"},
		{Summary: "Revisão", Status: "Aberto"},
	})

	if statusOf(rollup.Contract) != "Fechado" {
		t.Errorf("Expected contract Fechado, got %s", statusOf(rollup.Contract))
	}
	if statusOf(rollup.Content) != "Em Resolução" {
		t.Errorf("Expected content Em Resolução, got %s", statusOf(rollup.Content))
	}
	if statusOf(rollup.Video) != "Aberto" {
		t.Errorf("Expected video Aberto, got %s", statusOf(rollup.Video))
	}
	if !rollup.HasVideo {
		t.Error("Expected HasVideo from the video bucket")
	}
}

func TestAggregateWithoutVideoBucket(t *testing.T) {
	rollup := Aggregate(model.ItemTypeComplete, []Child{
		{Summary: "Conteúdo - Entregar", Status: "Resolvido"},
	})
	if rollup.HasVideo {
		t.Error("Expected HasVideo=false without a video sub-task")
	}
}

func TestAggregateVideoInContractTitle(t *testing.T) {
	rollup := Aggregate(model.ItemTypeComplete, []Child{
		{Summary: "Contrato - Elaborar / Vídeo - Gravar", Status: "Resolvido"},
	})
	if !rollup.HasVideo {
		t.Error("Expected HasVideo from a video keyword in any child title")
	}
	if statusOf(rollup.Contract) != "Fechado" {
		t.Errorf("Expected contract Fechado, got %s", statusOf(rollup.Contract))
	}
	if rollup.Video != nil {
		t.Errorf("Expected no video status, got %s", statusOf(rollup.Video))
	}
}
