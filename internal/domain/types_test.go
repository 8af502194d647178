package domain

import "testing"

func TestIsExpressed(t *testing.T) {
	tests := []struct {
		score    float64
		expected bool
	}{
		{1.0, false},
		{1.5, false},
		{1.51, true},
		{12, true},
	}

	for _, tt := range tests {
		if got := IsExpressed(tt.score); got != tt.expected {
			t.Errorf("IsExpressed(%v) = %v, expected %v", tt.score, got, tt.expected)
		}
	}
}

func TestParseDirection(t *testing.T) {
	tests := map[string]Direction{
		"":               DirectionRegulate,
		"regulate":       DirectionRegulate,
		"Activate":       DirectionIncrease,
		" upregulate ":   DirectionIncrease,
		"inhibit":        DirectionDecrease,
		"DecreaseAmount": DirectionDecrease,
		"binding":        DirectionBind,
		"frobnicate":     DirectionRegulate,
	}

	for keyword, expected := range tests {
		if got := ParseDirection(keyword); got != expected {
			t.Errorf("ParseDirection(%q) = %s, expected %s", keyword, got, expected)
		}
	}
}

func TestParseStrength(t *testing.T) {
	if ParseStrength("STRONG") != StrengthStrong {
		t.Error("Expected strong")
	}
	if ParseStrength("weak") != StrengthWeak {
		t.Error("Expected weak")
	}
	if ParseStrength("medium") != StrengthAny {
		t.Error("Expected unknown strength to mean any")
	}
}

func TestGrounding(t *testing.T) {
	tests := []struct {
		grounding Grounding
		family    bool
		gene      bool
	}{
		{Grounding{Namespace: "HGNC", ID: "11364"}, false, true},
		{Grounding{Namespace: "up", ID: "P40763"}, false, true},
		{Grounding{Namespace: "FPLX", ID: "AP1"}, true, false},
		{Grounding{Namespace: "HGNC_GROUP", ID: "588"}, true, false},
		{Grounding{Namespace: "CHEBI", ID: "15422"}, false, false},
	}

	for _, tt := range tests {
		if got := tt.grounding.IsFamily(); got != tt.family {
			t.Errorf("%s IsFamily() = %v", tt.grounding.Namespace, got)
		}
		if got := tt.grounding.IsGene(); got != tt.gene {
			t.Errorf("%s IsGene() = %v", tt.grounding.Namespace, got)
		}
	}
}

func TestResolvedEntity(t *testing.T) {
	gene := ResolvedEntity{Kind: KindSingleGene, Name: "stat3", Symbol: "STAT3"}
	if genes := gene.Genes(); len(genes) != 1 || genes[0] != "STAT3" {
		t.Errorf("Unexpected genes %v", genes)
	}
	if gene.Label() != "STAT3" {
		t.Errorf("Expected label STAT3, got %s", gene.Label())
	}

	family := ResolvedEntity{Kind: KindFamily, Name: "AP1", Members: []string{"FOS", "JUN"}}
	if genes := family.Genes(); len(genes) != 2 {
		t.Errorf("Expected family members, got %v", genes)
	}
	if family.Label() != "AP1" {
		t.Errorf("Expected label AP1, got %s", family.Label())
	}
	if c := family.Candidate(); c.Name != "AP1" || len(c.Members) != 2 {
		t.Errorf("Unexpected candidate %+v", c)
	}

	ambiguous := ResolvedEntity{Kind: KindAmbiguous, Name: "miR-20"}
	if ambiguous.Genes() != nil {
		t.Error("Expected ambiguous entity to have no genes")
	}
}
