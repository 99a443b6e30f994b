package cli

var PrintEvaluation = printEvaluation
