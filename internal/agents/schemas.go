package agents

import "github.com/wolfman30/clinical-agent-platform/internal/llm"

// Response schemas. Property names match the chat content JSON tags so a
// validated reply decodes straight into the message variant.

var strList = llm.ArrayOf(llm.String(""))

var trendPoints = llm.ArrayOf(llm.Object(map[string]*llm.Schema{
	"date":  llm.String("ISO date"),
	"value": llm.Number(""),
}))

var ecgSchema = llm.Object(map[string]*llm.Schema{
	"rhythm": llm.String("rhythm name"),
	"rate":   llm.Integer("ventricular rate in bpm"),
	"intervals": llm.Object(map[string]*llm.Schema{
		"pr":  llm.Integer("ms"),
		"qrs": llm.Integer("ms"),
		"qtc": llm.Integer("ms"),
	}),
	"findings":       strList,
	"interpretation": llm.String(""),
})

var ctaSchema = llm.Object(map[string]*llm.Schema{
	"calciumScore": llm.Number("Agatston score"),
	"cadRads":      llm.Enum("CAD-RADS category", "0", "1", "2", "3", "4A", "4B", "5", "N"),
	"stenoses": llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"vessel":   llm.String(""),
		"severity": llm.Enum("", "minimal", "mild", "moderate", "severe", "occluded"),
	})),
	"recommendation": llm.String(""),
})

var interventionalSchema = llm.Object(map[string]*llm.Schema{
	"indication":     llm.String(""),
	"procedure":      llm.String(""),
	"steps":          strList,
	"risks":          strList,
	"recommendation": llm.String(""),
})

var deviceSchema = llm.Object(map[string]*llm.Schema{
	"deviceType":      llm.String("pacemaker, ICD, CRT-D, loop recorder ..."),
	"batteryStatus":   llm.String(""),
	"pacingPercent":   llm.Number(""),
	"events":          strList,
	"recommendations": strList,
})

var lvadSchema = llm.Object(map[string]*llm.Schema{
	"pumpSpeed":        llm.Number("rpm"),
	"flow":             llm.Number("L/min"),
	"power":            llm.Number("W"),
	"pulsatilityIndex": llm.Number(""),
	"alarms":           strList,
	"assessment":       llm.String(""),
})

var efTrendSchema = llm.Object(map[string]*llm.Schema{
	"points":         trendPoints,
	"currentEf":      llm.Number("most recent LVEF percent"),
	"classification": llm.Enum("", "HFrEF", "HFmrEF", "HFpEF", "HFimpEF", "normal"),
	"interpretation": llm.String(""),
})

var heartFailureSchema = llm.Object(map[string]*llm.Schema{
	"nyhaClass":  llm.Enum("", "I", "II", "III", "IV"),
	"congestion": llm.String(""),
	"gdmt": llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"drug":           llm.String(""),
		"status":         llm.Enum("", "on_target", "titrate", "start", "contraindicated"),
		"recommendation": llm.String(""),
	})),
	"assessment": llm.String(""),
})

var consultSchema = llm.Object(map[string]*llm.Schema{
	"specialty":       llm.String(""),
	"assessment":      llm.String(""),
	"findings":        strList,
	"recommendations": strList,
	"followUp":        llm.String(""),
})

var trendChartSchema = llm.Object(map[string]*llm.Schema{
	"title":          llm.String(""),
	"metric":         llm.String("lab analyte"),
	"unit":           llm.String(""),
	"points":         trendPoints,
	"interpretation": llm.String(""),
})

var comparisonSchema = llm.Object(map[string]*llm.Schema{
	"changes": llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"finding":      llm.String(""),
		"before":       llm.String(""),
		"after":        llm.String(""),
		"significance": llm.Enum("", "improved", "worsened", "unchanged", "new"),
	})),
	"summary": llm.String(""),
})

var summarySchema = llm.Object(map[string]*llm.Schema{
	"summary":        llm.String(""),
	"activeProblems": strList,
	"keyFindings":    strList,
	"plan":           strList,
})

var hccSchema = llm.Object(map[string]*llm.Schema{
	"codes": llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"icd10":       llm.String(""),
		"description": llm.String(""),
		"hcc":         llm.String("CMS-HCC category"),
		"evidence":    llm.String("supporting documentation"),
	})),
	"summary": llm.String(""),
})

var riskSchema = llm.Object(map[string]*llm.Schema{
	"model":    llm.String("risk model used"),
	"score":    llm.Number(""),
	"category": llm.Enum("", "low", "intermediate", "high", "very high"),
	"factors": llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"name":   llm.String(""),
		"impact": llm.String(""),
	})),
	"recommendation": llm.String(""),
})

var differentialSchema = llm.Object(map[string]*llm.Schema{
	"diagnoses": llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"condition":  llm.String(""),
		"likelihood": llm.Enum("", "high", "moderate", "low"),
		"supporting": llm.String(""),
		"against":    llm.String(""),
	})),
	"nextSteps": strList,
})

var guidelineSchema = llm.Object(map[string]*llm.Schema{
	"guideline": llm.String("guideline name and year"),
	"items": llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"recommendation": llm.String(""),
		"status":         llm.Enum("", "met", "not_met", "not_applicable", "unknown"),
		"note":           llm.String(""),
	})),
})

var medicationSchema = llm.Object(map[string]*llm.Schema{
	"interactions": llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"drugs":       strList,
		"severity":    llm.Enum("", "minor", "moderate", "major", "contraindicated"),
		"description": llm.String(""),
	})),
	"recommendations": strList,
})

var labSchema = llm.Object(map[string]*llm.Schema{
	"values": llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"name":  llm.String(""),
		"value": llm.String(""),
		"unit":  llm.String(""),
		"flag":  llm.Enum("", "normal", "high", "low", "critical"),
	})),
	"interpretation": llm.String(""),
})

var imagingSchema = llm.Object(map[string]*llm.Schema{
	"modality":   llm.String(""),
	"findings":   strList,
	"impression": llm.String(""),
})

var genomicsSchema = llm.Object(map[string]*llm.Schema{
	"variants": llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"gene":         llm.String(""),
		"variant":      llm.String(""),
		"significance": llm.Enum("", "pathogenic", "likely pathogenic", "uncertain", "likely benign", "benign"),
	})),
	"implications": llm.String(""),
})

var boardSpecialtiesSchema = llm.Object(map[string]*llm.Schema{
	"specialties": strList,
})

var specialistReportSchema = llm.Object(map[string]*llm.Schema{
	"specialty":       llm.String(""),
	"assessment":      llm.String(""),
	"concerns":        strList,
	"recommendations": strList,
})

var boardConsensusSchema = llm.Object(map[string]*llm.Schema{
	"consensus":   llm.String(""),
	"actionItems": strList,
})

var debateSetupSchema = llm.Object(map[string]*llm.Schema{
	"topic": llm.String(""),
	"participants": llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"name":      llm.String(""),
		"specialty": llm.String(""),
		"stance":    llm.String(""),
	})),
})

var debateTurnSchema = llm.Object(map[string]*llm.Schema{
	"speaker":          llm.String("participant name"),
	"role":             llm.String("participant specialty"),
	"statement":        llm.String(""),
	"consensusReached": llm.Boolean(""),
	"consensus":        llm.Optional(llm.String("agreed position when consensus is reached")),
})
