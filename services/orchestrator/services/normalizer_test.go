package services

import (
	"reflect"
	"testing"

	"github.com/AleutianAI/scholarlink/services/orchestrator/datatypes"
)

func TestNormalizeIntentExpandsEngineeringAliases(t *testing.T) {
	aliases := []string{
		"engineering",
		"Engineering",
		"  UAlberta Engineering ",
		"FACULTY OF ENGINEERING",
		"faculty engineering",
		"engg",
		"UofA Engineering",
	}
	for _, alias := range aliases {
		t.Run(alias, func(t *testing.T) {
			in := datatypes.Intent{
				Intent:     datatypes.IntentDepartmentTopicTrends,
				Department: datatypes.Department{Name: alias},
			}
			out := NormalizeIntent(in)
			if !reflect.DeepEqual(out.Department.Names, EngineeringDepartments) {
				t.Errorf("expected engineering expansion, got %v", out.Department.Names)
			}
		})
	}
}

func TestNormalizeIntentLeavesConcreteDepartments(t *testing.T) {
	in := datatypes.Intent{Department: datatypes.Department{Name: "Mechanical Engineering"}}
	out := NormalizeIntent(in)
	if out.Department.Name != "Mechanical Engineering" || out.Department.IsList() {
		t.Errorf("concrete department must pass through, got %+v", out.Department)
	}
}

func TestNormalizeIntentLeavesExplicitLists(t *testing.T) {
	in := datatypes.Intent{Department: datatypes.Department{Names: []string{"Engineering"}}}
	out := NormalizeIntent(in)
	if !reflect.DeepEqual(out.Department.Names, []string{"Engineering"}) {
		t.Errorf("explicit list must pass through, got %v", out.Department.Names)
	}
}

func TestNormalizeIntentIsIdempotent(t *testing.T) {
	in := datatypes.Intent{Department: datatypes.Department{Name: "engineering"}}
	once := NormalizeIntent(in)
	twice := NormalizeIntent(once)
	if !reflect.DeepEqual(once.Department, twice.Department) {
		t.Errorf("normalization must be idempotent: %v vs %v", once.Department, twice.Department)
	}
}

func TestNormalizeIntentExpansionIsACopy(t *testing.T) {
	out := NormalizeIntent(datatypes.Intent{Department: datatypes.Department{Name: "engineering"}})
	out.Department.Names[0] = "mutated"
	if EngineeringDepartments[0] != "Electrical and Computer Engineering" {
		t.Error("expansion must not alias the catalog constant")
	}
}

func TestNormalizeIntentEmptyDepartment(t *testing.T) {
	out := NormalizeIntent(datatypes.Intent{Intent: datatypes.IntentOpenQuestion})
	if !out.Department.IsEmpty() {
		t.Errorf("empty department must stay empty, got %+v", out.Department)
	}
}
