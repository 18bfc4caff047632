package ehr

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
)

var demoNamespace = uuid.MustParse("6f1c2d4e-8a3b-4c5d-9e7f-0a1b2c3d4e5f")

func demoID(userID, key string) string {
	return uuid.NewSHA1(demoNamespace, []byte(userID+"/"+key)).String()
}

// DemoPatients returns a small synthetic panel owned by userID. IDs are
// stable per user so seeding is idempotent.
func DemoPatients(userID string) []clinical.Patient {
	return []clinical.Patient{
		{
			ID:     demoID(userID, "hf"),
			UserID: userID,
			Name:   "Margaret Chen",
			Age:    71,
			Gender: "female",
			MRN:    "DEMO-1001",
			CurrentStatus: clinical.CurrentStatus{
				Condition:   "HFrEF, NYHA II, paroxysmal atrial fibrillation",
				Vitals:      "BP 112/68, HR 74, SpO2 96%",
				Medications: []string{"sacubitril/valsartan 49/51 mg BID", "metoprolol succinate 100 mg daily", "apixaban 5 mg BID", "spironolactone 25 mg daily"},
			},
			MedicalHistory: []clinical.HistoryItem{
				{Condition: "Non-ischemic cardiomyopathy", Date: "2019-04-02"},
				{Condition: "CKD stage 3a", Date: "2021-09-15"},
			},
			CriticalAlerts: []string{"Potassium 5.4 on last BMP"},
			Reports: []clinical.Report{
				{ID: demoID(userID, "hf-echo-1"), Type: clinical.ReportEcho, Date: "2023-06-12", Title: "Transthoracic Echocardiogram", Content: clinical.TextContent("LVEF 30%. Moderate functional MR. LV end diastolic diameter 6.1 cm.")},
				{ID: demoID(userID, "hf-echo-2"), Type: clinical.ReportEcho, Date: "2024-05-20", Title: "Transthoracic Echocardiogram", Content: clinical.TextContent("LVEF 38%. Mild MR. Improved LV size.")},
				{ID: demoID(userID, "hf-ecg"), Type: clinical.ReportECG, Date: "2024-06-01", Title: "12-lead ECG", Content: clinical.TextContent("Atrial fibrillation, ventricular rate 82. QRS 104 ms, QTc 452 ms.")},
				{ID: demoID(userID, "hf-bmp"), Type: clinical.ReportLab, Date: "2024-06-03", Title: "Basic Metabolic Panel", Content: clinical.TextContent("Na 137, K 5.4 (H), Cr 1.5 (H), eGFR 48, BNP 420 (H)")},
				{ID: demoID(userID, "hf-device"), Type: clinical.ReportDevice, Date: "2024-04-18", Title: "ICD Interrogation", Content: clinical.TextContent("Single chamber ICD. Battery 6.2 years. No therapies delivered. AF burden 18%.")},
			},
		},
		{
			ID:     demoID(userID, "cad"),
			UserID: userID,
			Name:   "Robert Alvarez",
			Age:    58,
			Gender: "male",
			MRN:    "DEMO-1002",
			CurrentStatus: clinical.CurrentStatus{
				Condition:   "CAD s/p PCI to LAD, type 2 diabetes",
				Vitals:      "BP 134/82, HR 66",
				Medications: []string{"aspirin 81 mg daily", "ticagrelor 90 mg BID", "atorvastatin 80 mg daily", "metformin 1000 mg BID"},
			},
			MedicalHistory: []clinical.HistoryItem{{Condition: "NSTEMI", Date: "2024-01-08"}},
			Reports: []clinical.Report{
				{ID: demoID(userID, "cad-cta"), Type: clinical.ReportCTA, Date: "2023-12-20", Title: "Coronary CTA", Content: clinical.TextContent("Calcium score 412. Severe proximal LAD stenosis (70-90%). CAD-RADS 4A.")},
				{ID: demoID(userID, "cad-cath"), Type: clinical.ReportCath, Date: "2024-01-09", Title: "Cardiac Catheterization", Content: clinical.TextContent("90% proximal LAD lesion treated with one drug eluting stent. Residual 40% RCA.")},
				{ID: demoID(userID, "cad-lab"), Type: clinical.ReportLab, Date: "2024-04-02", Title: "Lipid Panel and A1c", Content: clinical.TextContent("LDL 82 (H), HDL 38, TG 190, A1c 7.9% (H)")},
			},
		},
		{
			ID:     demoID(userID, "onc"),
			UserID: userID,
			Name:   "Aisha Patel",
			Age:    49,
			Gender: "female",
			MRN:    "DEMO-1003",
			CurrentStatus: clinical.CurrentStatus{
				Condition:   "Stage II ER+ breast cancer on adjuvant therapy",
				Vitals:      "BP 120/76, HR 80",
				Medications: []string{"letrozole 2.5 mg daily", "vitamin D 2000 IU daily"},
			},
			Reports: []clinical.Report{
				{ID: demoID(userID, "onc-path"), Type: clinical.ReportPathology, Date: "2023-11-02", Title: "Breast Core Biopsy", Content: clinical.TextContent("Invasive ductal carcinoma, grade 2. ER 95%, PR 60%, HER2 1+.")},
				{ID: demoID(userID, "onc-genomics"), Type: clinical.ReportGenomics, Date: "2023-11-20", Title: "Hereditary Cancer Panel", Content: clinical.TextContent("BRCA2 c.5946delT pathogenic variant detected.")},
				{ID: demoID(userID, "onc-pdf"), Type: clinical.ReportPDF, Date: "2024-02-14", Title: "Oncology Consult Note", Content: clinical.AttachmentContent{Kind: clinical.AttachmentPDF, URL: "https://example.org/demo/oncology-consult.pdf", RawText: "Recommend adjuvant letrozole for 5 years and genetic counseling for family members."}},
			},
		},
	}
}

// EnsureDemoPatients seeds the demo panel when the user has no patients.
func EnsureDemoPatients(ctx context.Context, repo Repository, userID string) error {
	existing, err := repo.FetchPatients(ctx, userID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, p := range DemoPatients(userID) {
		if err := repo.CreatePatient(ctx, p); err != nil {
			return fmt.Errorf("ehr: seed %s: %w", p.Name, err)
		}
	}
	return nil
}
