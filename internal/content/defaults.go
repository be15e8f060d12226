package content

// DefaultData returns the seed dataset served when the local store holds
// nothing. Each call returns an independent copy.
func DefaultData() AdminData {
	return AdminData{
		Team: []TeamMember{
			{
				ID:   "1",
				Name: "Sarah Johnson",
				Role: "Billing Director",
				Bio:  "Over 15 years of experience in medical billing and healthcare administration.",
			},
			{
				ID:   "2",
				Name: "Michael Chen",
				Role: "Senior Medical Coder",
				Bio:  "Certified Professional Coder with expertise in multiple specialty areas.",
			},
		},
		Services: []Service{
			{
				ID:                  "svc-medical-coding",
				Title:               "Medical Coding",
				Description:         "Accurate ICD-10, CPT, and HCPCS coding services for maximum reimbursement.",
				DetailedTitle:       "Medical Coding Process",
				DetailedDescription: "Our comprehensive medical coding service ensures accurate and timely coding of medical records. We utilize state-of-the-art technology and expert coders to deliver high-quality results.",
				DetailedContent:     "1. Medical Record Review\n2. ICD-10 Diagnosis Coding\n3. CPT Procedure Coding\n4. HCPCS Supply Coding\n5. Modifier Application\n6. Coding Audits\n7. Final Review",
				ProcessSteps: []string{
					"Medical Record Review",
					"ICD-10 Diagnosis Coding",
					"CPT Procedure Coding",
					"HCPCS Supply Coding",
					"Modifier Application",
					"Coding Audits",
					"Final Review",
				},
				Features: []string{
					"ICD-10 Diagnosis Coding",
					"CPT Procedure Coding",
					"HCPCS Supply Coding",
					"Modifier Application",
					"Coding Audits",
				},
				Benefits: []string{
					"Improved accuracy rates",
					"Faster claim processing",
					"Reduced denials",
					"Compliance assurance",
				},
			},
			{
				ID:                  "svc-claims-processing",
				Title:               "Claims Processing",
				Description:         "End-to-end claims management from submission to payment posting.",
				DetailedTitle:       "Claims Processing Overview",
				DetailedDescription: "Our claims processing service streamlines your revenue cycle by managing all aspects of claims submission, tracking, and payment posting.",
				DetailedContent:     "1. Electronic Claims Submission\n2. Claims Tracking\n3. Denial Management\n4. Appeals Processing\n5. Payment Posting",
				ProcessSteps: []string{
					"Electronic Claims Submission",
					"Claims Tracking",
					"Denial Management",
					"Appeals Processing",
					"Payment Posting",
				},
				Features: []string{
					"Electronic Claims Submission",
					"Claims Tracking",
					"Denial Management",
					"Appeals Processing",
					"Payment Posting",
				},
				Benefits: []string{
					"Faster reimbursements",
					"Reduced administrative burden",
					"Improved cash flow",
					"Real-time reporting",
				},
			},
			{
				ID:                  "svc-revenue-cycle",
				Title:               "Revenue Cycle Management",
				Description:         "Comprehensive revenue cycle optimization to maximize your practice's financial performance.",
				DetailedTitle:       "Revenue Cycle Optimization",
				DetailedDescription: "Our revenue cycle management service provides a holistic approach to optimizing your practice's financial performance and patient experience.",
				DetailedContent:     "1. Patient Registration\n2. Insurance Verification\n3. Prior Authorization\n4. Charge Capture\n5. Collections Management",
				ProcessSteps: []string{
					"Patient Registration",
					"Insurance Verification",
					"Prior Authorization",
					"Charge Capture",
					"Collections Management",
				},
				Features: []string{
					"Patient Registration",
					"Insurance Verification",
					"Prior Authorization",
					"Charge Capture",
					"Collections Management",
				},
				Benefits: []string{
					"Increased revenue",
					"Reduced operating costs",
					"Better patient experience",
					"Strategic insights",
				},
			},
		},
		Jobs: []Job{
			{
				ID:          "1",
				Title:       "Medical Billing Specialist",
				Department:  "Billing",
				Type:        "Full-time",
				Location:    "Remote",
				Description: "We are seeking an experienced Medical Billing Specialist to join our growing team.",
				Requirements: []string{
					"Associate degree or relevant certification",
					"2+ years medical billing experience",
					"Knowledge of ICD-10, CPT codes",
					"Experience with EMR systems",
					"Strong attention to detail",
				},
				PostedDate: "2024-01-15",
			},
		},
	}
}
