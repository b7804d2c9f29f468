// Package taxonomy defines the closed set of canonical contributor
// categories and the prompt presented to the classification service.
// Membership is closed: standardization never invents new categories.
package taxonomy

import (
	"fmt"
	"strings"
)

// Fallback is the sentinel category used whenever classification
// degrades or standardization cannot confidently match.
const Fallback = "Other"

// Default returns the canonical category set in display order.
// The order carries no semantics but is stable: it drives prompt
// rendering and fuzzy tie-breaking.
func Default() []string {
	return []string{
		"Democratic Party Committees",
		"Other political action committees",
		"State Legislative Candidates/Officeholders",
		"Local Government Candidates/Officeholders",
		"Labor Unions",
		"Environmental Groups",
		"Oil Industry",
		"Pharmaceutical Industry",
		"Real Estate Industry",
		"Indian Tribes",
		"Lobbyists and Political Consultants",
		"Lawyers",
		"Individual contributor (with no other information)",
		"Business contributor (with no other information)",
		Fallback,
	}
}

// Contains reports whether label is a canonical category.
func Contains(categories []string, label string) bool {
	for _, c := range categories {
		if c == label {
			return true
		}
	}
	return false
}

// Prompt renders the classification prompt for one contributor.
// Employer and occupation must already carry the "Not provided" marker
// when absent.
func Prompt(name, employer, occupation string, categories []string) string {
	bullets := make([]string, len(categories))
	for i, c := range categories {
		bullets[i] = "- " + c
	}
	return fmt.Sprintf(promptTemplate, name, employer, occupation, strings.Join(bullets, "\n"))
}

const promptTemplate = `Please categorize this campaign contributor based on the available information.

Contributor Name: %s
Employer: %s
Occupation: %s

Example categories:
%s

Respond with only the most appropriate category from the list above. Base your decision on:
1. The contributor name (look for committee names, candidate names, organization names, unions)
2. The employer information (look for companies, government entities, law firms)
3. The occupation (look for specific professions like lawyers, consultants, etc.)

Apply these rules IN ORDER (more specific categories first):

If the contributor name appears to be a labor union (contains "Union", "Labor", "Workers", "Association" for employee groups, etc.) and has an ID number, choose "Labor Unions" - even if it also contains "PAC" or "Committee".
Note: "DRIVE Committee" is specifically a labor union committee (part of the Teamsters Union) and should be categorized as "Labor Unions".
Groups of employees referred to as "Administrators" or "Managers" should not be categorized as labor unions.
If the contributor name appears to be a tribal entity, choose "Indian Tribes".
If the contributor name or occupation appears to be a lobbyist or political consultant, choose "Lobbyists and Political Consultants".
If the contributor name or occupation appears to be a lawyer or legal firm, choose "Lawyers".
If the contributor name appears to be from the oil industry, choose "Oil Industry".
If the contributor name appears to be from the pharmaceutical industry, choose "Pharmaceutical Industry".
If the contributor name appears to be from the real estate industry, choose "Real Estate Industry". This includes but is not limited to construction companies, real estate developers, landlords, architects, engineering firms, and any entity with "YIMBY" in the name.
If the contributor name appears to be from environmental groups, choose "Environmental Groups".
If the contributor name appears to be a political committee or candidate committee and has an ID number, choose "Democratic Party Committees" or "Other political action committees" or "State Legislative Candidates/Officeholders" or "Local Government Candidates/Officeholders" as appropriate.
If the contributor name appears to be a business entity, choose "Business contributor with no other information".
If the contributor name appears to be an individual, labelled by first and last name, choose "Individual contributor with no other information".
Otherwise, choose "Other"

Do not explain your reasoning. Do not include any other text in your response.

No text that you provide for the category should be longer than 50 characters.

Category:`
