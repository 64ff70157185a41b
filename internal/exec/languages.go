package exec

import "github.com/IamSiddharthChoudhary/Assessly/internal/models"

// displayNames are used in placeholder output and language listings.
var displayNames = map[models.Language]string{
	models.LangJavaScript: "JavaScript",
	models.LangTypeScript: "TypeScript",
	models.LangPython:     "Python",
	models.LangJava:       "Java",
	models.LangCPP:        "C++",
	models.LangC:          "C",
	models.LangGo:         "Go",
	models.LangRust:       "Rust",
}

func DisplayName(lang models.Language) string {
	if name, ok := displayNames[lang]; ok {
		return name
	}
	return string(lang)
}

// starterTemplates hold the canonical default snippet per language, used for
// session initialization and the editor's reset action. Each parses trivially:
// a comment header plus an empty solution function.
var starterTemplates = map[models.Language]string{
	models.LangJavaScript: `// Welcome to your coding interview!
// You can start coding here...

function solution() {
    // Your code here
    return null;
}

// Test your solution
console.log(solution());`,

	models.LangTypeScript: `// Welcome to your coding interview!
// You can start coding here...

function solution(): any {
    // Your code here
    return null;
}

// Test your solution
console.log(solution());`,

	models.LangPython: `# Welcome to your coding interview!
# You can start coding here...

def solution():
    # Your code here
    return None

# Test your solution
print(solution())`,

	models.LangJava: `// Welcome to your coding interview!
// You can start coding here...

public class Solution {
    public static void main(String[] args) {
        Solution sol = new Solution();
        System.out.println(sol.solution());
    }

    public Object solution() {
        // Your code here
        return null;
    }
}`,

	models.LangCPP: `// Welcome to your coding interview!
// You can start coding here...

#include <iostream>
using namespace std;

int main() {
    // Your code here
    return 0;
}`,

	models.LangC: `// Welcome to your coding interview!
// You can start coding here...

#include <stdio.h>

int solution() {
    // Your code here
    return 0;
}

int main() {
    printf("Result: %d\n", solution());
    return 0;
}`,

	models.LangGo: `// Welcome to your coding interview!
// You can start coding here...

package main

import "fmt"

func solution() interface{} {
    // Your code here
    return nil
}

func main() {
    fmt.Println("Result:", solution())
}`,

	models.LangRust: `// Welcome to your coding interview!
// You can start coding here...

fn solution() -> Option<i32> {
    // Your code here
    None
}

fn main() {
    println!("Result: {:?}", solution());
}`,
}

// StarterTemplate returns the default snippet for a language, falling back to
// the default language's snippet for unknown tags.
func StarterTemplate(lang models.Language) string {
	if tpl, ok := starterTemplates[lang]; ok {
		return tpl
	}
	return starterTemplates[models.DefaultLanguage()]
}
