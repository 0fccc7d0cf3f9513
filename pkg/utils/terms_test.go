package utils

import (
	"reflect"
	"testing"
)

func TestTerms(t *testing.T) {
	got := Terms("What is the Grading policy for CS101? It's 40% exams.")
	want := []string{"grading", "policy", "cs101", "it's", "40", "exams"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}
	if len(Terms("what is the")) != 0 {
		t.Error("only stopwords should yield no terms")
	}
}

func TestTermSet(t *testing.T) {
	set := TermSet("cells cells membranes")
	if len(set) != 2 {
		t.Errorf("TermSet() = %v", set)
	}
}

func TestSentences(t *testing.T) {
	got := Sentences("Grading policy\nExams are 40%. Labs are 60%! Late work?  no trailing")
	want := []string{"Grading policy", "Exams are 40%.", "Labs are 60%!", "Late work?", "no trailing"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sentences() = %q, want %q", got, want)
	}
}
