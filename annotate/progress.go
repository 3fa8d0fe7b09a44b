// Copyright 2024 Arbornet, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package annotate

// ProgressSink is an optional interface passed into Annotate for
// reporting progress on long-running annotations. A nil sink is
// always valid and costs nothing.
type ProgressSink interface {
	// Task returns a handle scoped to one annotate() call; the
	// annotator releases it on every exit path, including error
	// returns, by deferring Task.Done immediately after acquiring it.
	Task(total int) ProgressTask
}

// ProgressTask is the scoped handle for one in-flight annotation.
type ProgressTask interface {
	Step(done int)
	Done()
}

type noopSink struct{}

func (noopSink) Task(int) ProgressTask { return noopTask{} }

type noopTask struct{}

func (noopTask) Step(int) {}
func (noopTask) Done()    {}

// acquireProgress returns sink's task, or a no-op task if sink is
// nil, so callers can always `defer task.Done()` unconditionally.
func acquireProgress(sink ProgressSink, total int) ProgressTask {
	if sink == nil {
		sink = noopSink{}
	}
	return sink.Task(total)
}
